package nodeconn

import (
	"github.com/orbitfleet/coordinator/pkg/nodeconn/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Channel is the minimal transport surface the Manager drives: push a raw
// JSON frame downward, pull raw JSON frames as they arrive upward. Keeping
// this as an interface (rather than the concrete gRPC stream type) lets
// handleChannel and the CommandBus be exercised in tests without a gRPC
// server.
type Channel interface {
	SendFrame(data []byte) error
	RecvFrame() ([]byte, error)
}

// grpcChannel adapts the generated bidi-stream server handle to Channel,
// unwrapping/wrapping the wrapperspb.BytesValue envelope gRPC requires.
type grpcChannel struct {
	stream proto.NodeChannel_ChannelServer
}

func newGRPCChannel(stream proto.NodeChannel_ChannelServer) *grpcChannel {
	return &grpcChannel{stream: stream}
}

func (c *grpcChannel) SendFrame(data []byte) error {
	return c.stream.Send(wrapperspb.Bytes(data))
}

func (c *grpcChannel) RecvFrame() ([]byte, error) {
	msg, err := c.stream.Recv()
	if err != nil {
		return nil, err
	}
	return msg.GetValue(), nil
}
