// Package rpc exposes a Log over gRPC, wrapping the in-process surface 1:1
// for remote callers. It follows the same grpc_prometheus interceptor idiom
// the teacher wires onto its task service and ingest client.
package rpc

import (
	"context"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"

	"github.com/estuary/epochlog/go/log"
)

// Server adapts a *log.Log to LogServiceServer.
type Server struct {
	l *log.Log
}

// NewServer wraps l for gRPC exposure.
func NewServer(l *log.Log) *Server { return &Server{l: l} }

// NewGRPCServer builds a *grpc.Server with srv registered as the LogService
// implementation and grpc_prometheus unary/stream interceptors installed.
func NewGRPCServer(srv LogServiceServer) *grpc.Server {
	var s = grpc.NewServer(
		grpc.UnaryInterceptor(grpc_prometheus.UnaryServerInterceptor),
		grpc.StreamInterceptor(grpc_prometheus.StreamServerInterceptor),
	)
	RegisterLogServiceServer(s, srv)
	grpc_prometheus.Register(s)
	return s
}

func (s *Server) Append(ctx context.Context, req *AppendRequest) (*AppendResponse, error) {
	if len(req.Payloads) == 1 {
		addr, err := s.l.EnqueueAsync(ctx, req.Payloads[0])
		if err != nil {
			return nil, err
		}
		return &AppendResponse{Address: addr, AllocatedLength: int32(frameLenOf(req.Payloads[0]))}, nil
	}

	var entries = make([]log.Entry, len(req.Payloads))
	for i, p := range req.Payloads {
		entries[i] = p
	}
	addr, allocLen, err := s.l.EnqueueBatch(entries)
	if err != nil {
		return nil, err
	}
	return &AppendResponse{Address: addr, AllocatedLength: int32(allocLen)}, nil
}

func (s *Server) Read(ctx context.Context, req *ReadRequest) (*ReadResponse, error) {
	payload, length, err := s.l.ReadAsync(ctx, req.Address, int(req.EstimatedLength))
	if err != nil {
		return nil, err
	}
	return &ReadResponse{Payload: payload, Length: int32(length)}, nil
}

func (s *Server) Truncate(ctx context.Context, req *TruncateRequest) (*TruncateResponse, error) {
	if err := s.l.TruncateUntil(ctx, req.Address); err != nil {
		return nil, err
	}
	return &TruncateResponse{}, nil
}

func (s *Server) Commit(ctx context.Context, req *CommitRequest) (*CommitResponse, error) {
	tail, err := s.l.Commit(ctx, req.SpinWait)
	if err != nil {
		return nil, err
	}
	return &CommitResponse{TailAddress: tail}, nil
}

func (s *Server) Stat(ctx context.Context, req *StatRequest) (*StatResponse, error) {
	return &StatResponse{
		BeginAddress:          s.l.BeginAddress(),
		CommittedUntilAddress: s.l.CommittedUntilAddress(),
		FlushedUntilAddress:   s.l.FlushedUntilAddress(),
		TailAddress:           s.l.TailAddress(),
	}, nil
}

func (s *Server) Scan(req *ScanRequest, stream LogService_ScanServer) error {
	var buffering = log.SinglePage
	if req.Buffering == Buffering_DOUBLE_PAGE {
		buffering = log.DoublePage
	}
	var opts []log.ScanOption
	if req.AllowUncommitted {
		opts = append(opts, log.AllowUncommitted())
	}

	var ctx = stream.Context()
	scanner, err := s.l.Scan(ctx, req.Begin, req.End, buffering, opts...)
	if err != nil {
		return err
	}
	defer scanner.Close()

	for scanner.Scan(ctx) {
		if err := stream.Send(&ScanResponse{Address: scanner.Address(), Payload: scanner.Entry()}); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func frameLenOf(p []byte) int {
	var n = len(p) + 3
	return 4 + (n &^ 3)
}
