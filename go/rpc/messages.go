package rpc

import proto "github.com/gogo/protobuf/proto"

// Wire messages for LogService. These are hand-authored rather than
// protoc-generated (the build has no protoc available), but follow the same
// struct-tag convention protoc-gen-gogo would emit so they marshal through
// gogo/protobuf's reflection-based Marshal/Unmarshal.

type AppendRequest struct {
	Payloads [][]byte `protobuf:"bytes,1,rep,name=payloads" json:"payloads,omitempty"`
}

func (m *AppendRequest) Reset()         { *m = AppendRequest{} }
func (m *AppendRequest) String() string { return proto.CompactTextString(m) }
func (*AppendRequest) ProtoMessage()    {}

type AppendResponse struct {
	Address         int64 `protobuf:"varint,1,opt,name=address" json:"address,omitempty"`
	AllocatedLength int32 `protobuf:"varint,2,opt,name=allocated_length,json=allocatedLength" json:"allocated_length,omitempty"`
}

func (m *AppendResponse) Reset()         { *m = AppendResponse{} }
func (m *AppendResponse) String() string { return proto.CompactTextString(m) }
func (*AppendResponse) ProtoMessage()    {}

type ReadRequest struct {
	Address         int64 `protobuf:"varint,1,opt,name=address" json:"address,omitempty"`
	EstimatedLength int32 `protobuf:"varint,2,opt,name=estimated_length,json=estimatedLength" json:"estimated_length,omitempty"`
}

func (m *ReadRequest) Reset()         { *m = ReadRequest{} }
func (m *ReadRequest) String() string { return proto.CompactTextString(m) }
func (*ReadRequest) ProtoMessage()    {}

type ReadResponse struct {
	Payload []byte `protobuf:"bytes,1,opt,name=payload" json:"payload,omitempty"`
	Length  int32  `protobuf:"varint,2,opt,name=length" json:"length,omitempty"`
}

func (m *ReadResponse) Reset()         { *m = ReadResponse{} }
func (m *ReadResponse) String() string { return proto.CompactTextString(m) }
func (*ReadResponse) ProtoMessage()    {}

type TruncateRequest struct {
	Address int64 `protobuf:"varint,1,opt,name=address" json:"address,omitempty"`
}

func (m *TruncateRequest) Reset()         { *m = TruncateRequest{} }
func (m *TruncateRequest) String() string { return proto.CompactTextString(m) }
func (*TruncateRequest) ProtoMessage()    {}

type TruncateResponse struct{}

func (m *TruncateResponse) Reset()         { *m = TruncateResponse{} }
func (m *TruncateResponse) String() string { return proto.CompactTextString(m) }
func (*TruncateResponse) ProtoMessage()    {}

type CommitRequest struct {
	SpinWait bool `protobuf:"varint,1,opt,name=spin_wait,json=spinWait" json:"spin_wait,omitempty"`
}

func (m *CommitRequest) Reset()         { *m = CommitRequest{} }
func (m *CommitRequest) String() string { return proto.CompactTextString(m) }
func (*CommitRequest) ProtoMessage()    {}

type CommitResponse struct {
	TailAddress int64 `protobuf:"varint,1,opt,name=tail_address,json=tailAddress" json:"tail_address,omitempty"`
}

func (m *CommitResponse) Reset()         { *m = CommitResponse{} }
func (m *CommitResponse) String() string { return proto.CompactTextString(m) }
func (*CommitResponse) ProtoMessage()    {}

type StatRequest struct{}

func (m *StatRequest) Reset()         { *m = StatRequest{} }
func (m *StatRequest) String() string { return proto.CompactTextString(m) }
func (*StatRequest) ProtoMessage()    {}

type StatResponse struct {
	BeginAddress          int64 `protobuf:"varint,1,opt,name=begin_address,json=beginAddress" json:"begin_address,omitempty"`
	CommittedUntilAddress int64 `protobuf:"varint,2,opt,name=committed_until_address,json=committedUntilAddress" json:"committed_until_address,omitempty"`
	FlushedUntilAddress   int64 `protobuf:"varint,3,opt,name=flushed_until_address,json=flushedUntilAddress" json:"flushed_until_address,omitempty"`
	TailAddress           int64 `protobuf:"varint,4,opt,name=tail_address,json=tailAddress" json:"tail_address,omitempty"`
}

func (m *StatResponse) Reset()         { *m = StatResponse{} }
func (m *StatResponse) String() string { return proto.CompactTextString(m) }
func (*StatResponse) ProtoMessage()    {}

// Buffering mirrors log.Buffering across the wire.
type Buffering int32

const (
	Buffering_SINGLE_PAGE Buffering = 0
	Buffering_DOUBLE_PAGE Buffering = 1
)

type ScanRequest struct {
	Begin            int64     `protobuf:"varint,1,opt,name=begin" json:"begin,omitempty"`
	End              int64     `protobuf:"varint,2,opt,name=end" json:"end,omitempty"`
	Buffering        Buffering `protobuf:"varint,3,opt,name=buffering,enum=rpc.Buffering" json:"buffering,omitempty"`
	AllowUncommitted bool      `protobuf:"varint,4,opt,name=allow_uncommitted,json=allowUncommitted" json:"allow_uncommitted,omitempty"`
}

func (m *ScanRequest) Reset()         { *m = ScanRequest{} }
func (m *ScanRequest) String() string { return proto.CompactTextString(m) }
func (*ScanRequest) ProtoMessage()    {}

type ScanResponse struct {
	Address int64  `protobuf:"varint,1,opt,name=address" json:"address,omitempty"`
	Payload []byte `protobuf:"bytes,2,opt,name=payload" json:"payload,omitempty"`
}

func (m *ScanResponse) Reset()         { *m = ScanResponse{} }
func (m *ScanResponse) String() string { return proto.CompactTextString(m) }
func (*ScanResponse) ProtoMessage()    {}

func init() {
	proto.RegisterType((*AppendRequest)(nil), "rpc.AppendRequest")
	proto.RegisterType((*AppendResponse)(nil), "rpc.AppendResponse")
	proto.RegisterType((*ReadRequest)(nil), "rpc.ReadRequest")
	proto.RegisterType((*ReadResponse)(nil), "rpc.ReadResponse")
	proto.RegisterType((*TruncateRequest)(nil), "rpc.TruncateRequest")
	proto.RegisterType((*TruncateResponse)(nil), "rpc.TruncateResponse")
	proto.RegisterType((*CommitRequest)(nil), "rpc.CommitRequest")
	proto.RegisterType((*CommitResponse)(nil), "rpc.CommitResponse")
	proto.RegisterType((*StatRequest)(nil), "rpc.StatRequest")
	proto.RegisterType((*StatResponse)(nil), "rpc.StatResponse")
	proto.RegisterType((*ScanRequest)(nil), "rpc.ScanRequest")
	proto.RegisterType((*ScanResponse)(nil), "rpc.ScanResponse")
}
