package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// LogServiceServer is the server API for LogService, wrapping an in-process
// *log.Log 1:1.
type LogServiceServer interface {
	Append(context.Context, *AppendRequest) (*AppendResponse, error)
	Read(context.Context, *ReadRequest) (*ReadResponse, error)
	Truncate(context.Context, *TruncateRequest) (*TruncateResponse, error)
	Commit(context.Context, *CommitRequest) (*CommitResponse, error)
	Stat(context.Context, *StatRequest) (*StatResponse, error)
	Scan(*ScanRequest, LogService_ScanServer) error
}

// LogService_ScanServer is the server-side stream handle for Scan.
type LogService_ScanServer interface {
	Send(*ScanResponse) error
	grpc.ServerStream
}

type logServiceScanServer struct {
	grpc.ServerStream
}

func (s *logServiceScanServer) Send(m *ScanResponse) error {
	return s.ServerStream.SendMsg(m)
}

func _LogService_Append_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	var in = new(AppendRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LogServiceServer).Append(ctx, in)
	}
	var info = &grpc.UnaryServerInfo{Server: srv, FullMethod: "/rpc.LogService/Append"}
	var handler = func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LogServiceServer).Append(ctx, req.(*AppendRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _LogService_Read_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	var in = new(ReadRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LogServiceServer).Read(ctx, in)
	}
	var info = &grpc.UnaryServerInfo{Server: srv, FullMethod: "/rpc.LogService/Read"}
	var handler = func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LogServiceServer).Read(ctx, req.(*ReadRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _LogService_Truncate_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	var in = new(TruncateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LogServiceServer).Truncate(ctx, in)
	}
	var info = &grpc.UnaryServerInfo{Server: srv, FullMethod: "/rpc.LogService/Truncate"}
	var handler = func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LogServiceServer).Truncate(ctx, req.(*TruncateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _LogService_Commit_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	var in = new(CommitRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LogServiceServer).Commit(ctx, in)
	}
	var info = &grpc.UnaryServerInfo{Server: srv, FullMethod: "/rpc.LogService/Commit"}
	var handler = func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LogServiceServer).Commit(ctx, req.(*CommitRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _LogService_Stat_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	var in = new(StatRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LogServiceServer).Stat(ctx, in)
	}
	var info = &grpc.UnaryServerInfo{Server: srv, FullMethod: "/rpc.LogService/Stat"}
	var handler = func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LogServiceServer).Stat(ctx, req.(*StatRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _LogService_Scan_Handler(srv interface{}, stream grpc.ServerStream) error {
	var in = new(ScanRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(LogServiceServer).Scan(in, &logServiceScanServer{stream})
}

// LogService_ServiceDesc is the grpc.ServiceDesc registered for LogService.
var LogService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "rpc.LogService",
	HandlerType: (*LogServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Append", Handler: _LogService_Append_Handler},
		{MethodName: "Read", Handler: _LogService_Read_Handler},
		{MethodName: "Truncate", Handler: _LogService_Truncate_Handler},
		{MethodName: "Commit", Handler: _LogService_Commit_Handler},
		{MethodName: "Stat", Handler: _LogService_Stat_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Scan", Handler: _LogService_Scan_Handler, ServerStreams: true},
	},
}

// RegisterLogServiceServer registers srv with s.
func RegisterLogServiceServer(s *grpc.Server, srv LogServiceServer) {
	s.RegisterService(&LogService_ServiceDesc, srv)
}

// LogServiceClient is the client API for LogService.
type LogServiceClient interface {
	Append(ctx context.Context, in *AppendRequest, opts ...grpc.CallOption) (*AppendResponse, error)
	Read(ctx context.Context, in *ReadRequest, opts ...grpc.CallOption) (*ReadResponse, error)
	Truncate(ctx context.Context, in *TruncateRequest, opts ...grpc.CallOption) (*TruncateResponse, error)
	Commit(ctx context.Context, in *CommitRequest, opts ...grpc.CallOption) (*CommitResponse, error)
	Stat(ctx context.Context, in *StatRequest, opts ...grpc.CallOption) (*StatResponse, error)
	Scan(ctx context.Context, in *ScanRequest, opts ...grpc.CallOption) (LogService_ScanClient, error)
}

type logServiceClient struct {
	cc *grpc.ClientConn
}

// NewLogServiceClient builds a LogServiceClient over cc.
func NewLogServiceClient(cc *grpc.ClientConn) LogServiceClient {
	return &logServiceClient{cc: cc}
}

func (c *logServiceClient) Append(ctx context.Context, in *AppendRequest, opts ...grpc.CallOption) (*AppendResponse, error) {
	var out = new(AppendResponse)
	if err := c.cc.Invoke(ctx, "/rpc.LogService/Append", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *logServiceClient) Read(ctx context.Context, in *ReadRequest, opts ...grpc.CallOption) (*ReadResponse, error) {
	var out = new(ReadResponse)
	if err := c.cc.Invoke(ctx, "/rpc.LogService/Read", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *logServiceClient) Truncate(ctx context.Context, in *TruncateRequest, opts ...grpc.CallOption) (*TruncateResponse, error) {
	var out = new(TruncateResponse)
	if err := c.cc.Invoke(ctx, "/rpc.LogService/Truncate", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *logServiceClient) Commit(ctx context.Context, in *CommitRequest, opts ...grpc.CallOption) (*CommitResponse, error) {
	var out = new(CommitResponse)
	if err := c.cc.Invoke(ctx, "/rpc.LogService/Commit", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *logServiceClient) Stat(ctx context.Context, in *StatRequest, opts ...grpc.CallOption) (*StatResponse, error) {
	var out = new(StatResponse)
	if err := c.cc.Invoke(ctx, "/rpc.LogService/Stat", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *logServiceClient) Scan(ctx context.Context, in *ScanRequest, opts ...grpc.CallOption) (LogService_ScanClient, error) {
	var stream, err = c.cc.NewStream(ctx, &LogService_ServiceDesc.Streams[0], "/rpc.LogService/Scan", opts...)
	if err != nil {
		return nil, err
	}
	var x = &logServiceScanClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// LogService_ScanClient is the client-side stream handle for Scan.
type LogService_ScanClient interface {
	Recv() (*ScanResponse, error)
	grpc.ClientStream
}

type logServiceScanClient struct {
	grpc.ClientStream
}

func (x *logServiceScanClient) Recv() (*ScanResponse, error) {
	var m = new(ScanResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
