package session

import "fmt"

// Record roles
const (
	RoleResume         = "resume"
	RoleJobDescription = "job_description"
)

// Singleton keys
const (
	KeyMatchConfirmed   = "match_confirmed"
	KeyMatchProvisional = "match_provisional"
	KeyFinalArtifact    = "final_artifact"
)

// RecordKey returns the key holding the structured record for a role.
func RecordKey(role string) string {
	return "record_" + role
}

// RawKey returns the key holding the raw document text for a role.
func RawKey(role string) string {
	return "raw_" + role
}

// CandidateKey returns the write-once key for the candidate of iteration i.
func CandidateKey(i int) string {
	return fmt.Sprintf("candidate_%d", i)
}

// IssuesKey returns the write-once key for the critique of iteration i.
func IssuesKey(i int) string {
	return fmt.Sprintf("issues_%d", i)
}
