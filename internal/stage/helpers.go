package stage

import (
	"strings"

	"sideline/internal/services"
	"sideline/internal/store"
)

// RequireArtifact validates the fields every stage relies on.
// On failure it returns a services.ErrValidation suitable for stage Execute methods.
func RequireArtifact(name string, artifact *store.Artifact) error {
	if artifact == nil {
		return services.Wrap(services.ErrValidation, name, "load artifact", "artifact missing", nil)
	}
	if strings.TrimSpace(artifact.OrgID) == "" || strings.TrimSpace(artifact.CoachID) == "" {
		return services.Wrap(services.ErrValidation, name, "load artifact",
			"artifact has no org or coach; resubmit the note", nil)
	}
	return nil
}
