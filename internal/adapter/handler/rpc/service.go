package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "aircraft.v1.AssemblyService"

const (
	CreateAssemblyMethod = "/" + ServiceName + "/CreateAssembly"
	DeleteAssemblyMethod = "/" + ServiceName + "/DeleteAssembly"
	GetAssemblyMethod    = "/" + ServiceName + "/GetAssembly"
)

type AssemblyServiceServer interface {
	CreateAssembly(context.Context, *CreateAssemblyRequest) (*Assembly, error)
	DeleteAssembly(context.Context, *AssemblyIDRequest) (*Empty, error)
	GetAssembly(context.Context, *AssemblyIDRequest) (*Assembly, error)
}

func RegisterAssemblyServiceServer(s grpc.ServiceRegistrar, srv AssemblyServiceServer) {
	s.RegisterService(&AssemblyServiceDesc, srv)
}

var AssemblyServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AssemblyServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateAssembly", Handler: createAssemblyHandler},
		{MethodName: "DeleteAssembly", Handler: deleteAssemblyHandler},
		{MethodName: "GetAssembly", Handler: getAssemblyHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "aircraft/v1/assembly.proto",
}

// unary decodes the request into in and runs call through the interceptor
// chain when one is installed.
func unary[Req any, Resp any](method string, call func(AssemblyServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AssemblyServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AssemblyServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var (
	createAssemblyHandler = unary(CreateAssemblyMethod, AssemblyServiceServer.CreateAssembly)
	deleteAssemblyHandler = unary(DeleteAssemblyMethod, AssemblyServiceServer.DeleteAssembly)
	getAssemblyHandler    = unary(GetAssemblyMethod, AssemblyServiceServer.GetAssembly)
)

type AssemblyServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAssemblyServiceClient(cc grpc.ClientConnInterface) *AssemblyServiceClient {
	return &AssemblyServiceClient{cc: cc}
}

func (c *AssemblyServiceClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}

func (c *AssemblyServiceClient) CreateAssembly(ctx context.Context, in *CreateAssemblyRequest, opts ...grpc.CallOption) (*Assembly, error) {
	out := new(Assembly)
	if err := c.invoke(ctx, CreateAssemblyMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AssemblyServiceClient) DeleteAssembly(ctx context.Context, in *AssemblyIDRequest, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.invoke(ctx, DeleteAssemblyMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AssemblyServiceClient) GetAssembly(ctx context.Context, in *AssemblyIDRequest, opts ...grpc.CallOption) (*Assembly, error) {
	out := new(Assembly)
	if err := c.invoke(ctx, GetAssemblyMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
