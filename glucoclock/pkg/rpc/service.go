package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "glucoclock.v1.Clock"

// ClockServer is the server API for the glucoclock.v1.Clock service. Messages
// are protobuf well-known types, so the service needs no generated code.
type ClockServer interface {
	Snapshot(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	UpdateNow(context.Context, *emptypb.Empty) (*wrapperspb.BoolValue, error)
	ToggleMute(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

func RegisterClockServer(s grpc.ServiceRegistrar, srv ClockServer) {
	s.RegisterService(&ClockServiceDesc, srv)
}

var ClockServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ClockServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Snapshot",
			Handler: unaryHandler("Snapshot", func(srv ClockServer, ctx context.Context, in *emptypb.Empty) (interface{}, error) {
				return srv.Snapshot(ctx, in)
			}),
		},
		{
			MethodName: "UpdateNow",
			Handler: unaryHandler("UpdateNow", func(srv ClockServer, ctx context.Context, in *emptypb.Empty) (interface{}, error) {
				return srv.UpdateNow(ctx, in)
			}),
		},
		{
			MethodName: "ToggleMute",
			Handler: unaryHandler("ToggleMute", func(srv ClockServer, ctx context.Context, in *emptypb.Empty) (interface{}, error) {
				return srv.ToggleMute(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "glucoclock/v1/clock.proto",
}

type unaryMethod func(srv ClockServer, ctx context.Context, in *emptypb.Empty) (interface{}, error)

func unaryHandler(name string, call unaryMethod) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	fullMethod := "/" + ServiceName + "/" + name
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ClockServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ClockServer), ctx, req.(*emptypb.Empty))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ClockClient calls a glucoclock.v1.Clock service.
type ClockClient struct {
	cc grpc.ClientConnInterface
}

func NewClockClient(cc grpc.ClientConnInterface) *ClockClient {
	return &ClockClient{cc: cc}
}

func (c *ClockClient) Snapshot(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Snapshot", &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ClockClient) UpdateNow(ctx context.Context, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/UpdateNow", &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ClockClient) ToggleMute(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/ToggleMute", &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
