package transport

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/heatslab/heatslab/types"
)

// abortNotice is broadcast on the abort subject.
type abortNotice struct {
	From   int    `msgpack:"from"`
	Reason string `msgpack:"reason"`
}

// readyNotice is sent by every non-root rank during the startup barrier.
type readyNotice struct {
	Rank int `msgpack:"rank"`
	Size int `msgpack:"size"`
}

func encode(v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", v, err)
	}

	return data, nil
}

func decodeHalo(data []byte) (types.HaloMessage, error) {
	var msg types.HaloMessage
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("failed to decode halo row: %w", err)
	}

	return msg, nil
}

func decodeBlock(data []byte) (types.Block, error) {
	var b types.Block
	if err := msgpack.Unmarshal(data, &b); err != nil {
		return b, fmt.Errorf("failed to decode block: %w", err)
	}

	return b, nil
}

func decodeAbort(data []byte) (abortNotice, error) {
	var n abortNotice
	err := msgpack.Unmarshal(data, &n)

	return n, err
}

func decodeReady(data []byte) (readyNotice, error) {
	var n readyNotice
	err := msgpack.Unmarshal(data, &n)

	return n, err
}
