package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const DashboardServiceName = "nps.v1.Dashboard"

const (
	methodGetMetrics    = "/" + DashboardServiceName + "/GetMetrics"
	methodListResponses = "/" + DashboardServiceName + "/ListResponses"
	methodGetDigest     = "/" + DashboardServiceName + "/GetDigest"
	methodUpdateDigest  = "/" + DashboardServiceName + "/UpdateDigest"
)

// DashboardServer is the server API for the nps.v1.Dashboard service. Requests and
// responses are google.protobuf.Struct documents.
type DashboardServer interface {
	GetMetrics(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListResponses(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetDigest(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateDigest(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterDashboardServer(s grpc.ServiceRegistrar, srv DashboardServer) {
	s.RegisterService(&Dashboard_ServiceDesc, srv)
}

func unaryHandler(method string, call func(DashboardServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DashboardServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DashboardServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var Dashboard_ServiceDesc = grpc.ServiceDesc{
	ServiceName: DashboardServiceName,
	HandlerType: (*DashboardServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetMetrics",
			Handler:    unaryHandler(methodGetMetrics, DashboardServer.GetMetrics),
		},
		{
			MethodName: "ListResponses",
			Handler:    unaryHandler(methodListResponses, DashboardServer.ListResponses),
		},
		{
			MethodName: "GetDigest",
			Handler:    unaryHandler(methodGetDigest, DashboardServer.GetDigest),
		},
		{
			MethodName: "UpdateDigest",
			Handler:    unaryHandler(methodUpdateDigest, DashboardServer.UpdateDigest),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "nps/v1/dashboard.proto",
}

// DashboardClient is the client API for the nps.v1.Dashboard service.
type DashboardClient struct {
	cc grpc.ClientConnInterface
}

func NewDashboardClient(cc grpc.ClientConnInterface) *DashboardClient {
	return &DashboardClient{cc: cc}
}

func (c *DashboardClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DashboardClient) GetMetrics(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodGetMetrics, in, opts...)
}

func (c *DashboardClient) ListResponses(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodListResponses, in, opts...)
}

func (c *DashboardClient) GetDigest(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodGetDigest, in, opts...)
}

func (c *DashboardClient) UpdateDigest(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodUpdateDigest, in, opts...)
}
