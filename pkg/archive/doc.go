/*
Package archive implements optional at-rest encryption for backup archive
containers that pass through object storage: nightly snapshots, on-demand
snapshots, and the "latest" hot-backup used by recovery.

Container format

When an archive encryption secret is configured, every container written to
object storage has the fixed layout:

	IV(12 bytes) || ciphertext || auth_tag(16 bytes)

AES-256-GCM is used as the AEAD primitive: Seal already appends the
authentication tag to the ciphertext, so the container's trailing 16 bytes
and the GCM tag are the same bytes by construction. The tag is written as
part of that single Seal call, before the container is closed, so a
truncated write can never land a container that looks complete but carries
no tag.

Key derivation

The encryption key is never used directly; it is always derived from the
configured secret with a fixed-salt KDF, the same derivation pkg/security
uses for the cluster root key:

  - NewSealer: for a high-entropy secret (generated cluster secret, random
    bytes), derives the key with HKDF-SHA256.
  - NewSealerFromPassword: for a password-grade secret, derives the key with
    PBKDF2-HMAC-SHA256 at a work factor that resists offline guessing.

Decryption rejects any container shorter than IV + tag outright, since such
a container cannot possibly hold a valid ciphertext.
*/
package archive
