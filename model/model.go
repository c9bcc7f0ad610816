package model

import (
	"glimmer/capture"
	"glimmer/display"
)

type StatusResponse struct {
	State           string
	BatteryLevel    int
	FirmwareVersion string
}

func FromPanelInfo(i display.PanelInfo) StatusResponse {
	return StatusResponse{
		State:           i.State.String(),
		BatteryLevel:    i.BatteryLevel,
		FirmwareVersion: i.FirmwareVersion,
	}
}

type CounterResponse struct {
	Count   int64
	Session string
}

type SessionSummary struct {
	Session   string
	Label     string
	StartedAt int64
}

func FromSessions(sessions []capture.Session) []SessionSummary {
	summaries := make([]SessionSummary, len(sessions))
	for i, s := range sessions {
		summaries[i] = SessionSummary{
			Session:   s.Uuid.String(),
			Label:     s.Label,
			StartedAt: s.StartedAt.Unix(),
		}
	}
	return summaries
}

type SampleResponse struct {
	SampledAt int64
	Count     int64
}

type CaptureResponse struct {
	Session   string
	Label     string
	StartedAt int64
	Samples   []SampleResponse
}

func FromSamples(s *capture.Session, samples []capture.Sample) CaptureResponse {
	r := CaptureResponse{
		Session:   s.Uuid.String(),
		Label:     s.Label,
		StartedAt: s.StartedAt.Unix(),
		Samples:   make([]SampleResponse, len(samples)),
	}
	for i, sample := range samples {
		r.Samples[i] = SampleResponse{
			SampledAt: sample.SampledAt.Unix(),
			Count:     sample.Count,
		}
	}
	return r
}
