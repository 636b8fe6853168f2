package livereload

import "encoding/json"

// Protocol7 is the LiveReload protocol identifier this server speaks.
const Protocol7 = "http://livereload.com/protocols/official-7"

// Commands used on the wire.
const (
	CommandHello  = "hello"
	CommandInfo   = "info"
	CommandReload = "reload"
	CommandCustom = "custom"
)

// ReloadMessage tells clients that path changed.
type ReloadMessage struct {
	Command string `json:"command"`
	Path    string `json:"path"`
}

// NewReloadMessage returns a reload command for path.
func NewReloadMessage(path string) ReloadMessage {
	return ReloadMessage{Command: CommandReload, Path: path}
}

// HelloMessage is the server side of the handshake.
type HelloMessage struct {
	Command    string   `json:"command"`
	Protocols  []string `json:"protocols"`
	ServerName string   `json:"serverName"`
}

// AssetEvent reports that an asset was rebuilt or changed on disk.
type AssetEvent struct {
	// Type is the asset kind, e.g. "css" or "js".
	Type string

	// File is the absolute path of the changed file.
	File string

	// Name identifies the asset to clients, usually its path below the base directory.
	Name string
}

// Path is the value clients receive in ReloadMessage.Path.
func (e AssetEvent) Path() string {
	return e.Type + ":" + e.Name
}

// inbound is the envelope of every client message.
type inbound struct {
	Command   string          `json:"command"`
	Protocols []string        `json:"protocols,omitempty"`
	URL       string          `json:"url,omitempty"`
	Plugins   json.RawMessage `json:"plugins,omitempty"`
}
