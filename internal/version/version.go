package version

import "fmt"

// Build-time variables. Override via -ldflags.
var (
	Version   = "dev"
	Commit    = "dev"
	BuildDate = "dev"
)

// Name is the server name reported to MCP clients.
const Name = "ramp-mcp"

// Info describes build/version metadata.
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
}

// Get returns version info, defaulting empty fields to "dev".
func Get() Info {
	return Info{
		Name:      Name,
		Version:   defaultOr(Version, "dev"),
		Commit:    defaultOr(Commit, "dev"),
		BuildDate: defaultOr(BuildDate, "dev"),
	}
}

func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit: %s, built: %s)", i.Name, i.Version, i.Commit, i.BuildDate)
}

// UserAgent is sent with every upstream API request.
func UserAgent() string {
	return Name + "/" + defaultOr(Version, "dev")
}

func defaultOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
