package repository

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileDocument_ApplyDefaults(t *testing.T) {
	var doc ProfileDocument
	require.NoError(t, json.Unmarshal([]byte(`{"profiles":[{"id":"p1","experience":[{"company":"c","title":"t"}]}]}`), &doc))

	doc.ApplyDefaults()

	p := doc.Profiles[0]
	assert.NotNil(t, p.Skills)
	assert.NotNil(t, p.Education)
	assert.NotNil(t, p.Links)
	require.NotNil(t, p.Experience[0].Current)
	assert.False(t, *p.Experience[0].Current)
	assert.NotNil(t, p.Experience[0].Bullets)
}

func TestProfileDocument_ApplyDefaults_NilProfiles(t *testing.T) {
	var doc ProfileDocument
	doc.ApplyDefaults()
	assert.NotNil(t, doc.Profiles)
}

func TestIsSection(t *testing.T) {
	for _, s := range Sections {
		assert.True(t, IsSection(s), s)
	}
	assert.False(t, IsSection("avatar"))
	assert.False(t, IsSection(""))
}

func TestProfile_SectionRoundTrip(t *testing.T) {
	tests := []struct {
		section string
		payload string
	}{
		{SectionBasics, `{"fullName":"Grace Hopper","headline":"Rear Admiral","email":"","phone":"","location":"Arlington"}`},
		{SectionSummary, `"Compiler pioneer."`},
		{SectionSkills, `["cobol","leadership"]`},
		{SectionExperience, `[{"company":"Navy","title":"Officer","startDate":"1943-12","endDate":"","current":false,"bullets":["Mark I"]}]`},
		{SectionEducation, `[{"school":"Yale","degree":"PhD","field":"Mathematics","endYear":1934}]`},
		{SectionLinks, `[{"label":"wiki","url":"https://en.wikipedia.org/wiki/Grace_Hopper"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.section, func(t *testing.T) {
			p := Profile{ID: "p1"}
			p.ApplyDefaults()

			require.NoError(t, p.SetSection(tt.section, json.RawMessage(tt.payload)))

			got, err := p.SectionValue(tt.section)
			require.NoError(t, err)
			assert.JSONEq(t, tt.payload, string(got))
		})
	}
}

func TestProfile_SetSection_UnknownSection(t *testing.T) {
	p := Profile{ID: "p1"}
	err := p.SetSection("avatar", json.RawMessage(`"x"`))
	assert.True(t, errors.Is(err, ErrUnknownSection))

	_, err = p.SectionValue("avatar")
	assert.True(t, errors.Is(err, ErrUnknownSection))
}

func TestProfile_SetSection_DecodeErrorLeavesProfile(t *testing.T) {
	p := Profile{ID: "p1", Skills: []string{"go"}}
	err := p.SetSection(SectionSkills, json.RawMessage(`{"not":"a list"}`))
	assert.Error(t, err)
	assert.Equal(t, []string{"go"}, p.Skills)
}

func TestProfile_SetSection_NullResetsToEmpty(t *testing.T) {
	p := Profile{ID: "p1", Skills: []string{"go"}}
	require.NoError(t, p.SetSection(SectionSkills, json.RawMessage(`null`)))
	assert.Equal(t, []string{}, p.Skills)
}

func TestAreProfileDocumentsEqual(t *testing.T) {
	a := createTestProfileDocument()
	b := createTestProfileDocument()
	b.Metadata.LastUpdate = 99

	assert.True(t, AreProfileDocumentsEqual(&a, &b), "metadata must be ignored")

	b.Profiles[0].Summary = "changed"
	assert.False(t, AreProfileDocumentsEqual(&a, &b))

	assert.True(t, AreProfileDocumentsEqual(nil, nil))
	assert.False(t, AreProfileDocumentsEqual(&a, nil))
}
