//go:build !pcap
// +build !pcap

package capture

import "context"

// PCAPSource is a stub when PCAP support is disabled.
// Build with -tags=pcap to enable live and offline capture.
type PCAPSource struct{}

// NewPCAPSource always fails without the pcap build tag.
func NewPCAPSource(cfg PCAPConfig) (*PCAPSource, error) {
	return nil, ErrPCAPDisabled
}

// Run always fails without the pcap build tag.
func (s *PCAPSource) Run(ctx context.Context, h Handler) error {
	return ErrPCAPDisabled
}
