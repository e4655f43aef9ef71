package apitypes

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ApiError represents an RFC 7807 (problem+json) error response.
type ApiError struct {
	// Status is the HTTP-style status code (e.g., 400, 404, 500)
	Status int `json:"status"`
	// Title is a short, human-readable summary of the problem type
	Title string `json:"title"`
	// Detail is a human-readable explanation specific to this occurrence
	Detail string `json:"detail"`
}

func (e ApiError) Error() string {
	if e.Status == 0 && e.Title == "" {
		return "unknown error"
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
}

// --

type PingResponse struct {
	Server  string `json:"server"`
	Version string `json:"version"`
}

type QueueStats struct {
	Produced uint64 `json:"produced"`
	Consumed uint64 `json:"consumed"`
	Evicted  uint64 `json:"evicted"`
	Dropped  uint64 `json:"dropped"`
}

type SessionState struct {
	Session      string     `json:"session,omitempty"`
	Address      string     `json:"address,omitempty"`
	State        string     `json:"state"`
	Running      bool       `json:"running"`
	Queue        QueueStats `json:"queue"`
	VideoPackets uint64     `json:"videoPackets"`
	VideoGaps    uint64     `json:"videoGaps"`
	AudioPackets uint64     `json:"audioPackets"`
	Messages     uint64     `json:"messages"`
	Commands     uint64     `json:"commands"`
	InputReports uint64     `json:"inputReports"`
	Malformed    uint64     `json:"malformed"`
	PushFailures uint64     `json:"pushFailures"`
}

// SessionResponse is returned by the session lifecycle routes.
type SessionResponse struct {
	Session string `json:"session,omitempty"`
	State   string `json:"state"`
}

type SyncRequest struct {
	Address string `json:"address"`
	Code    uint16 `json:"code"`
}

// UnmarshalJSON accepts the sync code either as a number or as the string
// shown on the TV, which may carry leading zeros (e.g. "0123" or 123).
func (s *SyncRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Address string `json:"address"`
		Code    any    `json:"code"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Address = raw.Address
	code, err := ParseSyncCode(raw.Code)
	if err != nil {
		return fmt.Errorf("code: %w", err)
	}
	s.Code = code
	return nil
}

// ParseSyncCode accepts a JSON number or a decimal string of up to 4 digits.
func ParseSyncCode(v any) (uint16, error) {
	switch val := v.(type) {
	case float64:
		if val < 0 || val > 9999 || val != float64(int(val)) {
			return 0, fmt.Errorf("value %v out of range 0-9999", val)
		}
		return uint16(val), nil
	case string:
		s := strings.TrimSpace(val)
		if len(s) == 0 || len(s) > 4 {
			return 0, fmt.Errorf("invalid sync code %q: expected up to 4 digits", val)
		}
		parsed, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			return 0, fmt.Errorf("invalid sync code %q: %w", val, err)
		}
		return uint16(parsed), nil
	case nil:
		return 0, fmt.Errorf("missing sync code")
	default:
		return 0, fmt.Errorf("expected number or string, got %T", v)
	}
}

type ConnectRequest struct {
	Address string `json:"address"`
	BSSID   string `json:"bssid"`
	PSK     string `json:"psk"`
}

type TouchRequest struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type ButtonRequest struct {
	Button string `json:"button"`
	Value  int32  `json:"value"`
}

type RegionRequest struct {
	Region uint8 `json:"region"`
}

type BatteryRequest struct {
	Status uint8 `json:"status"`
}

// EventFrameHeaderSize is the size of the header preceding every event on the
// events stream: kind (u8) and payload length (u32, big-endian).
const EventFrameHeaderSize = 5
