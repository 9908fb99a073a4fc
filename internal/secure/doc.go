// Package secure keeps secret values out of ordinary Go memory between the
// point they are read and the point they are dispatched.
//
// It wraps memguard. A SecureBuffer is:
//
//   - Encrypted at rest in memory (XSalsa20Poly1305)
//   - Protected from swapping via mlock
//   - Wiped when no longer needed
//
// # Usage
//
//	buf, err := secure.ReadSecureBuffer(os.Stdin)
//	if err != nil {
//	    return err
//	}
//	defer buf.Destroy()
//
//	err = buf.Reveal(func(plaintext []byte) error {
//	    _, err := dispatcher.StoreSecret(ctx, identity, dispatch.SecretRequest{
//	        Name:  name,
//	        Value: string(plaintext),
//	    })
//	    return err
//	})
//
// The vendor SDKs take the value as a Go string, so the copy handed to the
// dispatcher is ordinary heap memory for the duration of the call.
//
// # Platform Behavior
//
// Memory locking on Linux requires RLIMIT_MEMLOCK to be set appropriately.
// memguard falls back to unlocked memory when mlock fails.
package secure
