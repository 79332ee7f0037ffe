package protected

import (
	"errors"
	"testing"
)

func TestConfigError_Is(t *testing.T) {
	err := newConfigError(ErrMissingGroup, "protect pattern", "Protect:{.*}")

	if !errors.Is(err, ErrMissingGroup) {
		t.Error("ConfigError should unwrap to ErrMissingGroup")
	}

	if errors.Is(err, ErrMissingPlaceholder) {
		t.Error("ConfigError should not match ErrMissingPlaceholder")
	}
}

func TestConfigError_Message(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantPart string
	}{
		{
			name:     "full context",
			err:      newConfigError(ErrMissingGroup, "protect pattern", "P:{.*}"),
			wantPart: `missing named group in protect pattern "P:{.*}"`,
		},
		{
			name:     "field only",
			err:      &ConfigError{Err: ErrMissingProvider, Field: "provider"},
			wantPart: `missing protect provider (provider)`,
		},
		{
			name:     "bare",
			err:      &ConfigError{Err: ErrInvalidConfig},
			wantPart: `invalid protect configuration`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got != tt.wantPart {
				t.Errorf("Error() = %q, want %q", got, tt.wantPart)
			}
		})
	}
}

func TestTransformError_Is(t *testing.T) {
	cause := errors.New("key error")
	err := newTransformError(ErrEncrypt, "encrypt", "Db:Password", cause)

	if !errors.Is(err, ErrEncrypt) {
		t.Error("TransformError should unwrap to ErrEncrypt")
	}

	if !errors.Is(err, cause) {
		t.Error("TransformError should unwrap to its cause")
	}

	if errors.Is(err, ErrDecrypt) {
		t.Error("TransformError should not match ErrDecrypt")
	}
}

func TestTransformError_Message(t *testing.T) {
	cause := errors.New("authentication failed")

	err := newTransformError(ErrDecrypt, "decrypt", "Db:Password", cause)
	want := "decrypt key Db:Password: authentication failed"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err = newTransformError(ErrDecrypt, "decrypt", "", nil)
	if got := err.Error(); got != "decrypt" {
		t.Errorf("Error() = %q, want %q", got, "decrypt")
	}
}

func TestFileError(t *testing.T) {
	cause := errors.New("permission denied")
	err := NewFileError(ErrWriteFile, "/etc/app.json", cause)

	if !errors.Is(err, ErrWriteFile) || !errors.Is(err, cause) {
		t.Error("FileError should unwrap to sentinel and cause")
	}

	want := "write file failed /etc/app.json: permission denied"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	var fe *FileError
	if !errors.As(err, &fe) || fe.Path != "/etc/app.json" {
		t.Errorf("errors.As() = %v, want FileError for /etc/app.json", fe)
	}
}
