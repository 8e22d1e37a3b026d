package frontgrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
)

const (
	serviceName   = "frontline.v1.Frontend"
	sessionMethod = "/" + serviceName + "/Session"
	pingMethod    = "/" + serviceName + "/Ping"
)

// frontendServer is the server API of the Frontend service.
type frontendServer interface {
	Session(stream grpc.ServerStream) error
	Ping(ctx context.Context, req *emptypb.Empty) (*emptypb.Empty, error)
}

func sessionHandler(srv any, stream grpc.ServerStream) error {
	return srv.(frontendServer).Session(stream)
}

func pingHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(frontendServer).Ping(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: pingMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(frontendServer).Ping(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*frontendServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: pingHandler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Session",
			Handler:       sessionHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "frontline/v1/frontend.proto",
}
