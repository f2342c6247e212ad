package vawk_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/fwojciec/vawk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validCode = "```awk\n# VAWK: count_levels\n# Purpose: count log levels\n# Intent: triage\n# Input: log lines\n# Output: counts\n{ c[$3]++ }\n```"

func validReply() string {
	return "PLAN:\n- count\n\nCODE:\n" + validCode + "\n\nTESTS:\n- empty input\n\nNOTES:\n- posix\n"
}

func TestRequireAllSections(t *testing.T) {
	t.Parallel()

	full := vawk.Parse(validReply())

	t.Run("complete reply passes", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, vawk.RequireAllSections(full))
	})

	t.Run("reports the first missing section in order", func(t *testing.T) {
		t.Parallel()
		cases := []struct {
			blank   func(*vawk.Sections)
			section vawk.Section
		}{
			{func(s *vawk.Sections) { s.Plan = " " }, vawk.SectionPlan},
			{func(s *vawk.Sections) { s.Code = "" }, vawk.SectionCode},
			{func(s *vawk.Sections) { s.Tests = "\n" }, vawk.SectionTests},
			{func(s *vawk.Sections) { s.Notes = "" }, vawk.SectionNotes},
		}
		for _, c := range cases {
			s := full
			c.blank(&s)
			err := vawk.RequireAllSections(s)
			require.Error(t, err)
			assert.ErrorIs(t, err, vawk.ErrValidation)
			var verr *vawk.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, vawk.FailureMissingSection, verr.Kind)
			assert.Equal(t, c.section, verr.Section)
			assert.Equal(t, "missing "+string(c.section)+" section", verr.Reason)
		}
	})

	t.Run("missing plan wins over a missing header", func(t *testing.T) {
		t.Parallel()
		err := vawk.RequireAllSections(vawk.Sections{Code: "{ print }"})
		var verr *vawk.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, vawk.SectionPlan, verr.Section)
	})

	t.Run("code without header fails before tests are checked", func(t *testing.T) {
		t.Parallel()
		err := vawk.RequireAllSections(vawk.Sections{Plan: "p", Code: "{ print }"})
		var verr *vawk.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, vawk.FailureHeaderMissing, verr.Kind)
		assert.Contains(t, verr.Error(), "header missing required labels")
	})
}

func TestHasHeader(t *testing.T) {
	t.Parallel()

	labels := "# VAWK: x\n# Purpose: p\n# Intent: i\n# Input: in\n# Output: out\n"

	t.Run("all labels present", func(t *testing.T) {
		t.Parallel()
		assert.True(t, vawk.HasHeader(labels+"{ print }"))
	})

	t.Run("one label missing", func(t *testing.T) {
		t.Parallel()
		assert.False(t, vawk.HasHeader(strings.Replace(labels, "# Intent: i\n", "", 1)))
	})

	t.Run("leading shebang is ignored", func(t *testing.T) {
		t.Parallel()
		code := "#!/usr/bin/awk -f\n" + strings.Repeat("# filler\n", 5) + labels
		assert.True(t, vawk.HasHeader(code))
	})

	t.Run("label beyond the tenth non-blank line is not seen", func(t *testing.T) {
		t.Parallel()
		code := strings.Repeat("# filler\n", 6) + labels
		assert.False(t, vawk.HasHeader(code))
	})

	t.Run("blank lines do not count toward the window", func(t *testing.T) {
		t.Parallel()
		code := strings.Repeat("\n\n", 20) + strings.Repeat("# filler\n", 5) + labels
		assert.True(t, vawk.HasHeader(code))
	})

	t.Run("fenced code is checked inside the fence", func(t *testing.T) {
		t.Parallel()
		assert.True(t, vawk.HasHeader(validCode))
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	t.Run("second CODE block does not hide the header", func(t *testing.T) {
		t.Parallel()
		raw := "PLAN:\n- count\n\nCODE:\n" + validCode + "\n\nTESTS:\n- empty input\n\nCODE:\n{ print }\n\nNOTES:\n- posix\n"
		v := vawk.Validate(raw)
		require.True(t, v.OK(), "unexpected failure: %v", v.Err)
		assert.Contains(t, v.Sections.Code, "# VAWK: count_levels")
	})

	t.Run("valid reply", func(t *testing.T) {
		t.Parallel()
		v := vawk.Validate(validReply())
		assert.True(t, v.OK())
		assert.Equal(t, "- count", v.Sections.Plan)
		assert.True(t, strings.HasPrefix(v.Sections.Code, "# VAWK: count_levels"))
	})

	t.Run("no headers is unparseable", func(t *testing.T) {
		t.Parallel()
		v := vawk.Validate("I think you should use awk '{print $1}'.")
		require.False(t, v.OK())
		assert.Equal(t, vawk.FailureUnparseable, v.Err.Kind)
		assert.ErrorIs(t, v.Err, vawk.ErrValidation)
	})

	t.Run("sections present without header", func(t *testing.T) {
		t.Parallel()
		v := vawk.Validate("PLAN:\n- x\nCODE:\n```awk\n{ print }\n```\nTESTS:\n- t\nNOTES:\n- n")
		require.False(t, v.OK())
		assert.Equal(t, vawk.FailureHeaderMissing, v.Err.Kind)
	})

	t.Run("some sections missing", func(t *testing.T) {
		t.Parallel()
		v := vawk.Validate("PLAN:\n- x\nCODE:\n" + validCode)
		require.False(t, v.OK())
		assert.Equal(t, vawk.FailureMissingSection, v.Err.Kind)
		assert.Equal(t, vawk.SectionTests, v.Err.Section)
	})
}
