package search

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/districtcms/backend/pkg/models"
)

func TestDocumentIDSanitizesCourtSlashes(t *testing.T) {
	id := documentID(models.CourtID("district/9"), 42)
	require.Equal(t, "district_9_42", id)
}

func TestDocumentIDIsStableForSameInputs(t *testing.T) {
	require.Equal(t, documentID(models.CourtID("district9"), 1), documentID(models.CourtID("district9"), 1))
}
