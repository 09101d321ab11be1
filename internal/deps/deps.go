package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"clipquiz/internal/config"
	"clipquiz/internal/services/whisperx"
)

// Requirement defines an external dependency clipquiz relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	// VersionArgs, when set, are passed to Command to report its version.
	VersionArgs []string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the external tools a conversion needs for cfg.
func Requirements(cfg *config.Config) []Requirement {
	ytdlp, ffmpeg := "yt-dlp", "ffmpeg"
	if cfg != nil {
		if v := strings.TrimSpace(cfg.YTDLP.Binary); v != "" {
			ytdlp = v
		}
		if v := strings.TrimSpace(cfg.FFmpeg.Binary); v != "" {
			ffmpeg = v
		}
	}
	return []Requirement{
		{
			Name:        "yt-dlp",
			Command:     ytdlp,
			Description: "Required for audio retrieval",
			VersionArgs: []string{"--version"},
		},
		{
			Name:        "FFmpeg",
			Command:     ffmpeg,
			Description: "Required for audio normalization",
			VersionArgs: []string{"-version"},
		},
		{
			Name:        "uvx",
			Command:     whisperx.UVXCommand,
			Description: "Required for WhisperX-driven transcription",
			VersionArgs: []string{"--version"},
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Missing returns the names of required dependencies that are unavailable.
func Missing(statuses []Status) []string {
	var missing []string
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s.Name)
		}
	}
	return missing
}
