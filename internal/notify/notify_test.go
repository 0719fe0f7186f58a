package notify

import (
	"testing"

	"github.com/sandeepkv93/rightontime/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestComposeUsesCustomName(t *testing.T) {
	rec := model.TrackedRecord{
		ID:             "rec1",
		DocumentType:   model.DocumentH1B,
		PersonCategory: model.PersonSelf,
		PersonName:     "Asha",
		ExpiryDate:     model.MustDate(2026, 3, 11),
	}

	n := Compose(rec, 30)

	assert.Equal(t, "rec1_30", n.Key)
	assert.Equal(t, "H1B Expiring Soon", n.Title)
	assert.Equal(t, "Asha's H1B will expire in 30 days (March 11, 2026)", n.Body)
}

func TestComposeFallsBackToCategoryLabel(t *testing.T) {
	rec := model.TrackedRecord{
		ID:             "rec2",
		DocumentType:   model.DocumentSTEMOPT,
		PersonCategory: model.PersonSpouse,
		PersonName:     "   ",
		ExpiryDate:     model.MustDate(2027, 1, 2),
	}

	n := Compose(rec, 90)

	assert.Equal(t, "STEMOPT Expiring Soon", n.Title)
	assert.Equal(t, "Spouse's STEM OPT will expire in 90 days (January 2, 2027)", n.Body)
}

func TestEscapeAppleScript(t *testing.T) {
	assert.Equal(t, `say \"hi\" \\ bye`, escapeAppleScript(`say "hi" \ bye`))
}

func TestRecorderCopiesSent(t *testing.T) {
	var r Recorder
	assert.NoError(t, r.Send(Notification{Key: "a_30"}))
	got := r.Sent()
	got[0].Key = "changed"
	assert.Equal(t, "a_30", r.Sent()[0].Key)
}
