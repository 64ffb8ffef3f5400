// Package render turns grant token ids into QR codes.
package render

import (
	"errors"
	"fmt"
	"image"

	qrcode "github.com/skip2/go-qrcode"
)

const DefaultSize = 256

var ErrEmptyToken = errors.New("token id is empty")

func encode(tokenID string) (*qrcode.QRCode, error) {
	if tokenID == "" {
		return nil, ErrEmptyToken
	}
	q, err := qrcode.New(tokenID, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return q, nil
}

// PNG renders tokenID as a size×size PNG. A non-positive size uses DefaultSize.
func PNG(tokenID string, size int) ([]byte, error) {
	q, err := encode(tokenID)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = DefaultSize
	}
	b, err := q.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("render png: %w", err)
	}
	return b, nil
}

// Image renders tokenID as an in-memory image.
func Image(tokenID string, size int) (image.Image, error) {
	q, err := encode(tokenID)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = DefaultSize
	}
	return q.Image(size), nil
}

// Terminal renders tokenID with half-block characters for display in a terminal.
func Terminal(tokenID string) (string, error) {
	q, err := encode(tokenID)
	if err != nil {
		return "", err
	}
	return q.ToSmallString(false), nil
}
