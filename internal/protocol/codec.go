package protocol

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

const (
	// LengthSize 帧头长度字段字节数（大端序）
	LengthSize = 4

	// MaxFrameSize 单帧压缩体上限，超出视为协议错误
	MaxFrameSize = 1 << 20
)

var ErrFrameTooLarge = errors.New("FRAME_TOO_LARGE")

// EncodeFrame 编码一个完整消息帧
// 格式：[4字节大端长度][zlib 压缩后的紧凑 JSON]
func EncodeFrame(v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		return nil, fmt.Errorf("compress payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress payload: %w", err)
	}

	body := buf.Bytes()
	frame := make([]byte, LengthSize+len(body))
	binary.BigEndian.PutUint32(frame[:LengthSize], uint32(len(body)))
	copy(frame[LengthSize:], body)
	return frame, nil
}

// ReadFrame 从流中读出一帧并解压，返回 JSON 载荷
// 必须读满 length 指示的字节数才能解压，对端关闭时返回读错误
func ReadFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, LengthSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(header)
	if length > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}

	zr, err := zlib.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decompress payload: %w", err)
	}
	defer zr.Close()

	payload, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress payload: %w", err)
	}
	return payload, nil
}

// DecodeClientMessage 解析上行 JSON 载荷
func DecodeClientMessage(payload []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal client message: %w", err)
	}
	return &msg, nil
}
