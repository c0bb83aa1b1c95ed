// Package ndi discovers NDI video sources on the local network and receives
// their frames through a bridge process.
package ndi

import (
	"context"
	"errors"
	"strings"
)

// ErrNoSources is returned when discovery finds nothing to connect to.
var ErrNoSources = errors.New("no NDI sources found")

// SourceInfo describes a discovered NDI sender.
type SourceInfo struct {
	// Name is the full NDI name, "MACHINE (Stream)".
	Name string `json:"name"`
	// StreamName is the part of Name inside the parentheses.
	StreamName string `json:"stream_name"`
	Host       string `json:"host"`
	Port       int    `json:"port"`
}

// Finder discovers NDI sources.
type Finder interface {
	// Find blocks until the context expires or discovery settles and
	// returns the sources seen so far.
	Find(ctx context.Context) ([]SourceInfo, error)
}

// NewSourceInfo builds a SourceInfo from an NDI name, splitting out the stream name.
func NewSourceInfo(name, host string, port int) SourceInfo {
	return SourceInfo{
		Name:       name,
		StreamName: streamName(name),
		Host:       host,
		Port:       port,
	}
}

func streamName(name string) string {
	open := strings.LastIndex(name, "(")
	end := strings.LastIndex(name, ")")
	if open < 0 || end <= open {
		return name
	}
	return strings.TrimSpace(name[open+1 : end])
}

// Select picks the source to connect to. With an empty name the first source
// wins. Otherwise an exact name, then an exact stream name, then a
// case-sensitive substring of the name is matched; if nothing matches, the
// first source is returned and matched is false.
func Select(sources []SourceInfo, name string) (src SourceInfo, matched bool, err error) {
	if len(sources) == 0 {
		return SourceInfo{}, false, ErrNoSources
	}
	if name == "" {
		return sources[0], true, nil
	}

	for _, s := range sources {
		if s.Name == name {
			return s, true, nil
		}
	}
	for _, s := range sources {
		if s.StreamName == name {
			return s, true, nil
		}
	}
	for _, s := range sources {
		if strings.Contains(s.Name, name) {
			return s, true, nil
		}
	}

	return sources[0], false, nil
}
