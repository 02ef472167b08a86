package observerproto

import "testing"

func TestValidatorAcceptsClientMessages(t *testing.T) {
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	ok := map[string]string{
		TypeSubscribe: `{"type":"SUBSCRIBE","protocol_version":"1.0","compress":true}`,
		TypePose:      `{"type":"POSE","protocol_version":"1.0","pos":[8.5,70,-3.25]}`,
		TypeSetBlock:  `{"type":"SET_BLOCK","protocol_version":"1.0","request_id":"r1","pos":[1,2,3],"block":3}`,
	}
	for want, raw := range ok {
		typ, err := v.Check([]byte(raw))
		if err != nil {
			t.Fatalf("%s rejected: %v", want, err)
		}
		if typ != want {
			t.Fatalf("type=%s want %s", typ, want)
		}
	}
}

func TestValidatorRejects(t *testing.T) {
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	bad := []string{
		`not json`,
		`{"type":"HELLO","protocol_version":"1.0"}`,
		`{"type":"POSE","protocol_version":"1.0","pos":[1,2]}`,
		`{"type":"SET_BLOCK","protocol_version":"1.0","pos":[1.5,2,3],"block":3}`,
		`{"type":"SET_BLOCK","protocol_version":"1.0","pos":[1,2,3],"block":300}`,
		`{"type":"SUBSCRIBE","protocol_version":"1.0","extra":1}`,
	}
	for _, raw := range bad {
		if _, err := v.Check([]byte(raw)); err == nil {
			t.Fatalf("accepted invalid message %s", raw)
		}
	}
}

func TestErrorCodesKnown(t *testing.T) {
	for _, c := range []string{ErrProtoBadRequest, ErrWorldBusy, ErrBadRequest, ErrInvalidTarget, ErrInternal, ""} {
		if !IsKnownCode(c) {
			t.Fatalf("code %q not known", c)
		}
	}
	if IsKnownCode("E_NOPE") {
		t.Fatalf("unknown code accepted")
	}
}
