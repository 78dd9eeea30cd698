package domain

import (
	"strings"
	"time"
)

// RecognitionResult is one hypothesis delivered by the speech recognizer.
type RecognitionResult struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// Transcript is a single recognizer event as delivered by a transcript source.
type Transcript struct {
	ID         string              `json:"id"`
	Source     string              `json:"source"`
	Results    []RecognitionResult `json:"results"`
	ReceivedAt time.Time           `json:"received_at"`
}

// Latest returns the trimmed text of the most recent result. Interim results
// and blank text are reported as not usable.
func (t Transcript) Latest() (string, bool) {
	if len(t.Results) == 0 {
		return "", false
	}
	last := t.Results[len(t.Results)-1]
	if !last.Final {
		return "", false
	}
	text := strings.TrimSpace(last.Text)
	return text, text != ""
}

// TranscriptInput is the wire form accepted by the transcript sources. A bare
// Text is one result, final unless Final says otherwise; Results carries the
// full list when the producer has it.
type TranscriptInput struct {
	ID      string              `json:"id,omitempty"`
	Source  string              `json:"source,omitempty"`
	Text    string              `json:"text,omitempty"`
	Final   *bool               `json:"final,omitempty"`
	Results []RecognitionResult `json:"results,omitempty"`
}

// Empty reports whether the input carries nothing to recognize.
func (in TranscriptInput) Empty() bool {
	return strings.TrimSpace(in.Text) == "" && len(in.Results) == 0
}

func (in TranscriptInput) Transcript(defaultSource string, receivedAt time.Time) Transcript {
	t := Transcript{
		ID:         in.ID,
		Source:     in.Source,
		Results:    in.Results,
		ReceivedAt: receivedAt,
	}
	if t.Source == "" {
		t.Source = defaultSource
	}
	if len(t.Results) == 0 && strings.TrimSpace(in.Text) != "" {
		final := true
		if in.Final != nil {
			final = *in.Final
		}
		t.Results = []RecognitionResult{{Text: in.Text, Final: final}}
	}
	return t
}

// Utterance is a usable transcript plus its canonical form.
type Utterance struct {
	ID         string    `json:"id"`
	Raw        string    `json:"raw"`
	Canonical  string    `json:"canonical"`
	ReceivedAt time.Time `json:"received_at"`
}

// ActivityState is the listening state of the assistant.
type ActivityState string

const (
	StateActive    ActivityState = "active"
	StateSuspended ActivityState = "suspended"
)

// ResolutionPath tells which classifier produced a label.
type ResolutionPath string

const (
	PathLocal  ResolutionPath = "local"
	PathRemote ResolutionPath = "remote"
)

// Failure explains why the remote classifier fell back to the sentinel.
type Failure string

const (
	FailureNone          Failure = ""
	FailureNoCredential  Failure = "no_credential"
	FailureTransport     Failure = "transport"
	FailureInvalidOutput Failure = "invalid_output"
)

// Verdict is the outcome of a remote classification. Label is always a member
// of the closed vocabulary, whatever Failure says.
type Verdict struct {
	Label   Label   `json:"label"`
	Failure Failure `json:"failure,omitempty"`
	Raw     string  `json:"raw,omitempty"`
}

// Resolution is what the command consumer receives for one utterance.
type Resolution struct {
	UtteranceID string         `json:"utterance_id"`
	Transcript  string         `json:"transcript"`
	Label       Label          `json:"label"`
	Path        ResolutionPath `json:"path"`
	Failure     Failure        `json:"failure,omitempty"`
	Latency     time.Duration  `json:"latency"`
	ResolvedAt  time.Time      `json:"resolved_at"`
}
