package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/tbourn/couple-checkin/internal/storage"
)

// MaxAudioBytes bounds a decoded clip.
const MaxAudioBytes = 6 << 20

// TranscribeInput is a base64 clip, optionally as a data URL.
type TranscribeInput struct {
	Audio       string
	ContentType string
	ProfileID   string
}

// Transcript is the transcription result. AudioKey is set when the clip was
// archived.
type Transcript struct {
	Text     string `json:"text"`
	AudioKey string `json:"audio_key,omitempty"`
}

// Transcriber sends clips to /audio/transcriptions.
type Transcriber struct {
	Client *Client
	// Archive stores the clip when set. Failures are logged, not returned.
	Archive storage.AudioStore
	Now     func() time.Time
}

// Transcribe decodes in.Audio, sends it upstream, and archives it if an
// archive is configured.
func (t *Transcriber) Transcribe(ctx context.Context, in TranscribeInput) (*Transcript, error) {
	data, contentType, err := DecodeAudio(in.Audio, in.ContentType)
	if err != nil {
		return nil, err
	}
	if !t.Client.configured() {
		return nil, ErrNotConfigured
	}

	resp, err := t.Client.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.Client.model,
		FilePath: "audio" + storage.Ext(contentType),
		Reader:   bytes.NewReader(data),
	})
	if err != nil {
		return nil, upstreamErr(err)
	}
	out := Transcript{Text: strings.TrimSpace(resp.Text)}

	if t.Archive != nil {
		key := storage.AudioKey(in.ProfileID, contentType, clock(t.Now))
		if err := t.Archive.Put(ctx, key, contentType, data); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("archive audio failed")
		} else {
			out.AudioKey = key
		}
	}
	return &out, nil
}

// DecodeAudio accepts raw base64 or a "data:<type>;base64," URL. The content
// type from the data URL wins over fallback; audio/webm is the default.
func DecodeAudio(s, fallback string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	contentType := strings.TrimSpace(fallback)
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(meta, ";base64") {
			return nil, "", ErrInvalidAudio
		}
		if ct := strings.TrimSuffix(meta, ";base64"); ct != "" {
			contentType = ct
		}
		s = payload
	}
	if s == "" {
		return nil, "", ErrInvalidAudio
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(s); err != nil {
			return nil, "", ErrInvalidAudio
		}
	}
	if len(data) == 0 || len(data) > MaxAudioBytes {
		return nil, "", ErrInvalidAudio
	}
	if contentType == "" {
		contentType = "audio/webm"
	}
	return data, contentType, nil
}
