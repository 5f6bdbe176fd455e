package ipc

import (
	"github.com/genricoloni/tunecord/internal/domain"
	"github.com/goccy/go-json"
)

type handshake struct {
	Version  int    `json:"v"`
	ClientID string `json:"client_id"`
}

type request struct {
	Cmd   string       `json:"cmd"`
	Args  activityArgs `json:"args"`
	Nonce string       `json:"nonce"`
}

type activityArgs struct {
	PID      int       `json:"pid"`
	Activity *activity `json:"activity"`
}

type response struct {
	Cmd   string          `json:"cmd"`
	Evt   string          `json:"evt"`
	Nonce string          `json:"nonce"`
	Data  json.RawMessage `json:"data"`
}

type errorData struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type activity struct {
	Type       int         `json:"type"`
	Details    string      `json:"details,omitempty"`
	State      string      `json:"state,omitempty"`
	Timestamps *timestamps `json:"timestamps,omitempty"`
	Assets     *assets     `json:"assets,omitempty"`
}

type timestamps struct {
	Start int64 `json:"start,omitempty"`
	End   int64 `json:"end,omitempty"`
}

type assets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

// toWire converts a domain activity, omitting empty optional sections.
func toWire(a domain.Activity) *activity {
	out := &activity{
		Type:    int(a.Type),
		Details: a.Details,
		State:   a.State,
	}
	if a.StartUnix != 0 || a.EndUnix != 0 {
		out.Timestamps = &timestamps{Start: a.StartUnix, End: a.EndUnix}
	}
	if a.LargeImage != "" || a.LargeText != "" || a.SmallImage != "" || a.SmallText != "" {
		out.Assets = &assets{
			LargeImage: a.LargeImage,
			LargeText:  a.LargeText,
			SmallImage: a.SmallImage,
			SmallText:  a.SmallText,
		}
	}
	return out
}
