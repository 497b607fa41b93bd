// Package secure holds envelope key material in protected memory.
//
// It wraps the memguard library so that a store key or passphrase, while
// resident in the process, is:
//
//   - Encrypted at rest in memory (XSalsa20Poly1305)
//   - Protected from swapping via mlock
//   - Securely wiped when no longer needed
//   - Protected from buffer overflow via guard pages
//
// The plaintext only exists inside an Open window or a WithBytes callback:
//
//	buf := secure.NewBuffer(keyBytes) // keyBytes are wiped by the copy
//	defer buf.Destroy()
//
//	err := buf.WithBytes(func(key []byte) error {
//	    plaintext, err = envelope.UnsealWithKey(data, key)
//	    return err
//	})
//
// If mlock is unavailable (for example a tight RLIMIT_MEMLOCK), memguard
// degrades to standard allocation; the encrypted-at-rest property still
// holds. None of this defends against an attacker who already controls the
// process or the hardware.
package secure
