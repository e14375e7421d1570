package codec

import (
	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"

	"marketdata/internal/schema"
	"marketdata/pkg/exception"
)

var api = sonic.ConfigStd

// EncodeCommand serializes a command envelope.
func EncodeCommand(c schema.Command) ([]byte, error) {
	b, err := api.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "encode command")
	}
	return b, nil
}

// DecodeCommand parses a command envelope. An envelope without a token cannot be answered
// and is rejected; an unknown op is left for the caller to answer.
func DecodeCommand(src []byte) (schema.Command, error) {
	var c schema.Command
	if err := api.Unmarshal(src, &c); err != nil {
		return schema.Command{}, errors.Wrap(err, "decode command")
	}
	if c.Token == "" {
		return schema.Command{}, errors.Wrap(exception.ErrInvalidArgument, "decode command: empty token")
	}
	return c, nil
}

// EncodeResponse serializes a response envelope.
func EncodeResponse(r schema.Response) ([]byte, error) {
	b, err := api.Marshal(r)
	if err != nil {
		return nil, errors.Wrap(err, "encode response")
	}
	return b, nil
}

// DecodeResponse parses a response envelope.
func DecodeResponse(src []byte) (schema.Response, error) {
	var r schema.Response
	if err := api.Unmarshal(src, &r); err != nil {
		return schema.Response{}, errors.Wrap(err, "decode response")
	}
	if r.Token == "" {
		return schema.Response{}, errors.Wrap(exception.ErrInvalidArgument, "decode response: empty token")
	}
	return r, nil
}
