package ctxengine_test

import (
	"strings"
	"testing"

	ctxengine "github.com/flemzord/confidant/internal/context"
	"github.com/flemzord/confidant/internal/focus"
)

func TestDefaultTemplatesCarryPlaceholders(t *testing.T) {
	t.Parallel()

	tpl := ctxengine.DefaultGenerationConfig().Templates
	for _, tc := range []struct {
		name, template, placeholder string
	}{
		{"deep_empathy_analysis", tpl.DeepEmpathyAnalysis, focus.MessagePlaceholder},
		{"deep_empathy", tpl.DeepEmpathy, focus.FocusPlaceholder},
		{"swipe", tpl.Swipe, ctxengine.ReplyPlaceholder},
	} {
		if !strings.Contains(tc.template, tc.placeholder) {
			t.Errorf("%s template %q lacks %s", tc.name, tc.template, tc.placeholder)
		}
	}
}
