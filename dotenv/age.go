package dotenv

import (
	"bufio"
	"fmt"
	"io"

	"filippo.io/age"
	"filippo.io/age/armor"
)

const armorHeader = "-----BEGIN AGE ENCRYPTED FILE-----"

// DecryptReader returns the plaintext of an age-encrypted env file. Binary
// and ASCII-armored input are both accepted. The plaintext is streamed, so
// the result can be passed straight to NewIter.
func DecryptReader(r io.Reader, identities ...age.Identity) (io.Reader, error) {
	br := bufio.NewReader(r)
	var src io.Reader = br
	if head, _ := br.Peek(len(armorHeader)); string(head) == armorHeader {
		src = armor.NewReader(br)
	}
	plain, err := age.Decrypt(src, identities...)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plain, nil
}

type encryptWriter struct {
	io.WriteCloser
	armor io.WriteCloser
}

func (w *encryptWriter) Close() error {
	if err := w.WriteCloser.Close(); err != nil {
		return err
	}
	return w.armor.Close()
}

// EncryptWriter returns a writer that encrypts to recipients. Close must be
// called to flush the final chunk.
func EncryptWriter(w io.Writer, armored bool, recipients ...age.Recipient) (io.WriteCloser, error) {
	if !armored {
		ew, err := age.Encrypt(w, recipients...)
		if err != nil {
			return nil, fmt.Errorf("encrypt: %w", err)
		}
		return ew, nil
	}
	aw := armor.NewWriter(w)
	ew, err := age.Encrypt(aw, recipients...)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}
	return &encryptWriter{WriteCloser: ew, armor: aw}, nil
}
