package upstream

import (
	"testing"

	"github.com/ngoclaw/upstreamgw/internal/domain/entity"
	"github.com/ngoclaw/upstreamgw/internal/infrastructure/wireproto"
)

func fieldStrings(t *testing.T, body []byte, field int) []string {
	t.Helper()
	var out []string
	r := wireproto.NewReader(body)
	for {
		f, ok, err := r.Next()
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !ok {
			break
		}
		if f.Number == field {
			out = append(out, f.String())
		}
	}
	return out
}

func TestApplyContextFillModeZeroFillsNothing(t *testing.T) {
	var env entity.EnvInfo
	ApplyContextFillMode(&env, 0, "ctx")
	if env.Context != "" || env.RepoContext != "" || env.ModeContext != "" {
		t.Fatalf("expected no slots filled, got %+v", env)
	}
}

func TestApplyContextFillModeEachBit(t *testing.T) {
	cases := []struct {
		mask                               uint8
		context, repoContext, modeContext bool
	}{
		{0b001, true, false, false},
		{0b010, false, true, false},
		{0b100, false, false, true},
		{0b011, true, true, false},
		{0b111, true, true, true},
	}
	for _, c := range cases {
		var env entity.EnvInfo
		ApplyContextFillMode(&env, c.mask, "ctx")
		if (env.Context != "") != c.context {
			t.Errorf("mask %03b: Context filled=%v, want %v", c.mask, env.Context != "", c.context)
		}
		if (env.RepoContext != "") != c.repoContext {
			t.Errorf("mask %03b: RepoContext filled=%v, want %v", c.mask, env.RepoContext != "", c.repoContext)
		}
		if (env.ModeContext != "") != c.modeContext {
			t.Errorf("mask %03b: ModeContext filled=%v, want %v", c.mask, env.ModeContext != "", c.modeContext)
		}
	}
}

func TestBuildRequestEncodesModelID(t *testing.T) {
	req := &entity.NormalizedRequest{ModelID: "claude-x"}
	body := BuildRequest(req)
	got := fieldStrings(t, body, reqFieldModelID)
	if len(got) != 1 || got[0] != "claude-x" {
		t.Fatalf("got %v, want [claude-x]", got)
	}
}

func TestBuildRequestEncodesMessagesInOrder(t *testing.T) {
	req := &entity.NormalizedRequest{
		Messages: []entity.Message{
			{Role: entity.RoleUser, Content: []entity.ContentBlock{{Kind: entity.ContentText, Text: "hi"}}},
			{Role: entity.RoleAssistant, Content: []entity.ContentBlock{{Kind: entity.ContentText, Text: "hello"}}},
		},
	}
	body := BuildRequest(req)

	r := wireproto.NewReader(body)
	var roles []string
	for {
		f, ok, err := r.Next()
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !ok {
			break
		}
		if f.Number != reqFieldMessages {
			continue
		}
		mr := wireproto.NewReader(f.Raw)
		for {
			mf, mok, merr := mr.Next()
			if merr != nil {
				t.Fatalf("decode message: %v", merr)
			}
			if !mok {
				break
			}
			if mf.Number == msgFieldRole {
				roles = append(roles, mf.String())
			}
		}
	}
	if len(roles) != 2 || roles[0] != "user" || roles[1] != "assistant" {
		t.Fatalf("got roles %v", roles)
	}
}

func TestBuildRequestEncodesToolUseBlock(t *testing.T) {
	req := &entity.NormalizedRequest{
		Messages: []entity.Message{
			{Role: entity.RoleAssistant, Content: []entity.ContentBlock{{
				Kind:       entity.ContentToolUse,
				ToolCallID: "call_1",
				ToolName:   "search",
				ToolInput:  map[string]any{"q": "weather"},
			}}},
		},
	}
	body := BuildRequest(req)

	r := wireproto.NewReader(body)
	f, ok, err := r.Next()
	if err != nil || !ok || f.Number != reqFieldMessages {
		t.Fatalf("expected one message field, got ok=%v err=%v", ok, err)
	}
	mr := wireproto.NewReader(f.Raw)
	mf, ok, err := mr.Next()
	if err != nil || !ok || mf.Number != msgFieldRole {
		t.Fatalf("expected role field first")
	}
	bf, ok, err := mr.Next()
	if err != nil || !ok || bf.Number != msgFieldContent {
		t.Fatalf("expected content block field")
	}
	br := wireproto.NewReader(bf.Raw)
	var gotID, gotName string
	for {
		f, ok, err := br.Next()
		if err != nil {
			t.Fatalf("decode block: %v", err)
		}
		if !ok {
			break
		}
		switch f.Number {
		case blockFieldToolCallID:
			gotID = f.String()
		case blockFieldToolName:
			gotName = f.String()
		}
	}
	if gotID != "call_1" || gotName != "search" {
		t.Fatalf("got id=%q name=%q", gotID, gotName)
	}
}

func TestEncodeToolInputJSONNilMapIsEmptyObject(t *testing.T) {
	if got := encodeToolInputJSON(nil); got != "{}" {
		t.Fatalf("got %q, want {}", got)
	}
}
