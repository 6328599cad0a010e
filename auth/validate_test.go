package auth

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/onnwee/trirk/testutil"
)

func TestValidate(t *testing.T) {
	mock := testutil.NewMockTwitchServer(t)
	mock.MockValidateResponse("good-token", "trirkbot", "1234", []string{"chat:read"}, 5000)

	v := Validator{URL: mock.URL + "/oauth2/validate", HTTPClient: mock.Client()}

	got, err := v.Validate(context.Background(), "oauth:good-token")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got.Login != "trirkbot" || got.UserID != "1234" || got.ExpiresIn != 5000 {
		t.Errorf("Validate() = %+v", got)
	}
	if missing := got.MissingScopes(ChatScopes...); !reflect.DeepEqual(missing, []string{"chat:edit"}) {
		t.Errorf("MissingScopes() = %v, want [chat:edit]", missing)
	}
}

func TestValidateRejected(t *testing.T) {
	mock := testutil.NewMockTwitchServer(t)
	mock.MockValidateResponse("good-token", "trirkbot", "1234", nil, 5000)

	v := Validator{URL: mock.URL + "/oauth2/validate", HTTPClient: mock.Client()}
	_, err := v.Validate(context.Background(), "expired")
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate() error = %v, want ErrInvalidToken", err)
	}
}

func TestValidateBlankToken(t *testing.T) {
	if _, err := (Validator{}).Validate(context.Background(), "oauth:"); !errors.Is(err, ErrNoToken) {
		t.Errorf("Validate() error = %v, want ErrNoToken", err)
	}
}
