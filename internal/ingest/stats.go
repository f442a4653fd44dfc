package ingest

// Stats summarizes one import run.
type Stats struct {
	Files    int      `json:"files"`
	Sessions int      `json:"sessions"`
	Tasks    int      `json:"tasks"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Rejected int      `json:"rejected"`
	Warnings []string `json:"warnings,omitempty"`
}

// maxWarnings caps the messages kept per run.
const maxWarnings = 50

func (s *Stats) warn(msgs ...string) {
	s.Rejected += len(msgs)
	for _, m := range msgs {
		if len(s.Warnings) >= maxWarnings {
			return
		}
		s.Warnings = append(s.Warnings, m)
	}
}
