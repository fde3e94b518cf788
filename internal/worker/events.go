package worker

import "github.com/book-expert/events"

// TalkJobEvent asks the worker to render one utterance.
type TalkJobEvent struct {
	Header events.EventHeader `json:"header"`
	Text   string             `json:"text"`
	Native bool               `json:"native"`
	// Params carries synthesis parameters as the HTTP form would (type, bas, spd,
	// vol, pit, acc, lmd, fsc).
	Params map[string]string `json:"params,omitempty"`
}

// TalkCompletedEvent is the reply to a TalkJobEvent.
type TalkCompletedEvent struct {
	Header   events.EventHeader `json:"header"`
	AudioKey string             `json:"audio_key"`
	Filename string             `json:"filename"`
	// Fallback is set when the audio is the fallback utterance.
	Fallback bool `json:"fallback"`
}
