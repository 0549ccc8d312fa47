package archive

import (
	"bytes"
	"strings"
	"testing"
)

func TestSealOpenRoundtrip(t *testing.T) {
	s, err := NewSealer([]byte("a-high-entropy-32-byte-secret!!!"))
	if err != nil {
		t.Fatalf("NewSealer() error = %v", err)
	}

	tests := []struct {
		name      string
		plaintext []byte
	}{
		{name: "small archive", plaintext: []byte("tar-gz-bytes-stand-in")},
		{name: "binary data", plaintext: []byte{0x1f, 0x8b, 0x08, 0x00, 0xff, 0xfe}},
		{name: "large archive", plaintext: bytes.Repeat([]byte("backup"), 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			container, err := s.Seal(tt.plaintext)
			if err != nil {
				t.Fatalf("Seal() error = %v", err)
			}
			if len(container) != len(tt.plaintext)+minContainerBytes {
				t.Errorf("container length = %d, want %d", len(container), len(tt.plaintext)+minContainerBytes)
			}

			plaintext, err := s.Open(container)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if !bytes.Equal(plaintext, tt.plaintext) {
				t.Error("decrypted plaintext does not match original")
			}
		})
	}
}

func TestOpenRejectsShortContainer(t *testing.T) {
	s, _ := NewSealer([]byte("a-high-entropy-32-byte-secret!!!"))

	tests := []struct {
		name      string
		container []byte
	}{
		{name: "empty", container: nil},
		{name: "shorter than nonce", container: []byte{0x01, 0x02}},
		{name: "nonce plus partial tag", container: bytes.Repeat([]byte{0x00}, minContainerBytes-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Open(tt.container); err == nil {
				t.Error("Open() should reject a container shorter than IV + tag")
			}
		})
	}
}

func TestOpenRejectsWrongKey(t *testing.T) {
	s1, _ := NewSealer([]byte("secret-one-is-high-entropy-32by"))
	s2, _ := NewSealer([]byte("secret-two-is-high-entropy-32by"))

	container, err := s1.Seal([]byte("tenant backup payload"))
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	if _, err := s2.Open(container); err == nil {
		t.Error("Open() should fail when decrypting with a different sealer's key")
	}
}

func TestOpenRejectsTamperedContainer(t *testing.T) {
	s, _ := NewSealer([]byte("a-high-entropy-32-byte-secret!!!"))

	container, err := s.Seal([]byte("tenant backup payload"))
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	tampered := append([]byte(nil), container...)
	tampered[len(tampered)-1] ^= 0xFF

	if _, err := s.Open(tampered); err == nil {
		t.Error("Open() should fail when the container has been tampered with")
	}
}

func TestNewSealerFromPassword(t *testing.T) {
	s1, err := NewSealerFromPassword("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("NewSealerFromPassword() error = %v", err)
	}
	s2, err := NewSealerFromPassword("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("NewSealerFromPassword() error = %v", err)
	}

	container, err := s1.Seal([]byte("password-derived key test"))
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if _, err := s2.Open(container); err != nil {
		t.Error("same password should derive the same key across sealer instances")
	}

	if _, err := NewSealerFromPassword(""); err == nil {
		t.Error("NewSealerFromPassword() should reject an empty password")
	}
}

func TestNewSealerRejectsEmptySecret(t *testing.T) {
	if _, err := NewSealer(nil); err == nil {
		t.Error("NewSealer() should reject an empty secret")
	}
}

func TestSealToWriterOpenFromReader(t *testing.T) {
	s, _ := NewSealer([]byte("a-high-entropy-32-byte-secret!!!"))

	plaintext := strings.Repeat("nightly-backup-payload", 500)
	var buf bytes.Buffer
	if err := SealToWriter(s, &buf, strings.NewReader(plaintext)); err != nil {
		t.Fatalf("SealToWriter() error = %v", err)
	}

	decrypted, err := OpenFromReader(s, &buf)
	if err != nil {
		t.Fatalf("OpenFromReader() error = %v", err)
	}
	if string(decrypted) != plaintext {
		t.Error("decrypted stream does not match original plaintext")
	}
}
