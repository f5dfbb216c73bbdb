// Package dotheworkv1 defines the dothework.v1.BookingsService gRPC API.
// Messages travel as JSON; see Codec.
package dotheworkv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "dothework.v1.BookingsService"

func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

type BookingsServiceServer interface {
	ValidateBooking(context.Context, *ValidateBookingRequest) (*ValidateBookingResponse, error)
	CreateBooking(context.Context, *CreateBookingRequest) (*CreateBookingResponse, error)
	GetBooking(context.Context, *GetBookingRequest) (*GetBookingResponse, error)
	ListBookings(context.Context, *ListBookingsRequest) (*ListBookingsResponse, error)
	UpdateBookingStatus(context.Context, *UpdateBookingStatusRequest) (*UpdateBookingStatusResponse, error)
	GetCalendar(context.Context, *GetCalendarRequest) (*GetCalendarResponse, error)
	ListServices(context.Context, *ListServicesRequest) (*ListServicesResponse, error)
	UpsertService(context.Context, *UpsertServiceRequest) (*UpsertServiceResponse, error)
	GetReceipt(context.Context, *GetReceiptRequest) (*GetReceiptResponse, error)
}

// UnimplementedBookingsServiceServer can be embedded for forward
// compatibility.
type UnimplementedBookingsServiceServer struct{}

func (UnimplementedBookingsServiceServer) ValidateBooking(context.Context, *ValidateBookingRequest) (*ValidateBookingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ValidateBooking not implemented")
}

func (UnimplementedBookingsServiceServer) CreateBooking(context.Context, *CreateBookingRequest) (*CreateBookingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateBooking not implemented")
}

func (UnimplementedBookingsServiceServer) GetBooking(context.Context, *GetBookingRequest) (*GetBookingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetBooking not implemented")
}

func (UnimplementedBookingsServiceServer) ListBookings(context.Context, *ListBookingsRequest) (*ListBookingsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListBookings not implemented")
}

func (UnimplementedBookingsServiceServer) UpdateBookingStatus(context.Context, *UpdateBookingStatusRequest) (*UpdateBookingStatusResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateBookingStatus not implemented")
}

func (UnimplementedBookingsServiceServer) GetCalendar(context.Context, *GetCalendarRequest) (*GetCalendarResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetCalendar not implemented")
}

func (UnimplementedBookingsServiceServer) ListServices(context.Context, *ListServicesRequest) (*ListServicesResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListServices not implemented")
}

func (UnimplementedBookingsServiceServer) UpsertService(context.Context, *UpsertServiceRequest) (*UpsertServiceResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UpsertService not implemented")
}

func (UnimplementedBookingsServiceServer) GetReceipt(context.Context, *GetReceiptRequest) (*GetReceiptResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetReceipt not implemented")
}

func unary[Req, Resp any](method string, call func(BookingsServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(BookingsServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var BookingsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookingsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ValidateBooking", BookingsServiceServer.ValidateBooking),
		unary("CreateBooking", BookingsServiceServer.CreateBooking),
		unary("GetBooking", BookingsServiceServer.GetBooking),
		unary("ListBookings", BookingsServiceServer.ListBookings),
		unary("UpdateBookingStatus", BookingsServiceServer.UpdateBookingStatus),
		unary("GetCalendar", BookingsServiceServer.GetCalendar),
		unary("ListServices", BookingsServiceServer.ListServices),
		unary("UpsertService", BookingsServiceServer.UpsertService),
		unary("GetReceipt", BookingsServiceServer.GetReceipt),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dothework/v1/bookings",
}

func RegisterBookingsServiceServer(s grpc.ServiceRegistrar, srv BookingsServiceServer) {
	s.RegisterService(&BookingsServiceDesc, srv)
}

// BookingsServiceClient calls the service with the JSON codec.
type BookingsServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewBookingsServiceClient(cc grpc.ClientConnInterface) *BookingsServiceClient {
	return &BookingsServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(Codec)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BookingsServiceClient) ValidateBooking(ctx context.Context, in *ValidateBookingRequest, opts ...grpc.CallOption) (*ValidateBookingResponse, error) {
	return invoke[ValidateBookingResponse](ctx, c.cc, "ValidateBooking", in, opts)
}

func (c *BookingsServiceClient) CreateBooking(ctx context.Context, in *CreateBookingRequest, opts ...grpc.CallOption) (*CreateBookingResponse, error) {
	return invoke[CreateBookingResponse](ctx, c.cc, "CreateBooking", in, opts)
}

func (c *BookingsServiceClient) GetBooking(ctx context.Context, in *GetBookingRequest, opts ...grpc.CallOption) (*GetBookingResponse, error) {
	return invoke[GetBookingResponse](ctx, c.cc, "GetBooking", in, opts)
}

func (c *BookingsServiceClient) ListBookings(ctx context.Context, in *ListBookingsRequest, opts ...grpc.CallOption) (*ListBookingsResponse, error) {
	return invoke[ListBookingsResponse](ctx, c.cc, "ListBookings", in, opts)
}

func (c *BookingsServiceClient) UpdateBookingStatus(ctx context.Context, in *UpdateBookingStatusRequest, opts ...grpc.CallOption) (*UpdateBookingStatusResponse, error) {
	return invoke[UpdateBookingStatusResponse](ctx, c.cc, "UpdateBookingStatus", in, opts)
}

func (c *BookingsServiceClient) GetCalendar(ctx context.Context, in *GetCalendarRequest, opts ...grpc.CallOption) (*GetCalendarResponse, error) {
	return invoke[GetCalendarResponse](ctx, c.cc, "GetCalendar", in, opts)
}

func (c *BookingsServiceClient) ListServices(ctx context.Context, in *ListServicesRequest, opts ...grpc.CallOption) (*ListServicesResponse, error) {
	return invoke[ListServicesResponse](ctx, c.cc, "ListServices", in, opts)
}

func (c *BookingsServiceClient) UpsertService(ctx context.Context, in *UpsertServiceRequest, opts ...grpc.CallOption) (*UpsertServiceResponse, error) {
	return invoke[UpsertServiceResponse](ctx, c.cc, "UpsertService", in, opts)
}

func (c *BookingsServiceClient) GetReceipt(ctx context.Context, in *GetReceiptRequest, opts ...grpc.CallOption) (*GetReceiptResponse, error) {
	return invoke[GetReceiptResponse](ctx, c.cc, "GetReceipt", in, opts)
}
