// Package wire converts between control-bus datagrams and OSC messages.
package wire

import (
	"fmt"

	"github.com/hypebeast/go-osc/osc"

	"osc-console/domain"
	"osc-console/errors"
)

// Encode marshals an outbound command. Only int32 and string arguments are accepted.
func Encode(cmd domain.Command) ([]byte, error) {
	msg := osc.NewMessage(cmd.Address)
	for i, arg := range cmd.Args {
		switch v := arg.(type) {
		case int32, string:
			msg.Append(v)
		case int:
			msg.Append(int32(v))
		default:
			return nil, fmt.Errorf("%w: %s argument %d has type %T", errors.ErrEncode, cmd.Address, i, arg)
		}
	}
	return msg.MarshalBinary()
}

// Decode parses one datagram, flattening bundles into their messages.
func Decode(data []byte) ([]*osc.Message, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty datagram", errors.ErrParse)
	}
	packet, err := osc.ParsePacket(string(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrParse, err)
	}
	switch p := packet.(type) {
	case *osc.Message:
		return []*osc.Message{p}, nil
	case *osc.Bundle:
		return flatten(p), nil
	default:
		return nil, fmt.Errorf("%w: unsupported packet %T", errors.ErrParse, packet)
	}
}

func flatten(b *osc.Bundle) []*osc.Message {
	msgs := append([]*osc.Message{}, b.Messages...)
	for _, inner := range b.Bundles {
		msgs = append(msgs, flatten(inner)...)
	}
	return msgs
}
