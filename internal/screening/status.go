package screening

import "fmt"

// Status is the human-readable progress line handed to status displays.
type Status string

const StatusNoValidResumes Status = "No valid resumes processed"

func StatusReading(files int) Status {
	return Status(fmt.Sprintf("Reading %d file(s)…", files))
}

func StatusProcessed(resumes int) Status {
	return Status(fmt.Sprintf("Processed %d resume(s)", resumes))
}
