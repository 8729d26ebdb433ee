package domain

// Algorithm represents the authenticated encryption algorithm used for a package.
//
// Both supported algorithms provide Authenticated Encryption with Associated
// Data (AEAD), so every package carries integrity protection for its metadata
// as well as confidentiality for its payload.
//
// Algorithm selection guidelines:
//   - Use AESGCM on modern CPUs with AES-NI hardware acceleration
//   - Use ChaCha20 on systems without AES-NI
//   - Both provide equivalent 256-bit security when used correctly
type Algorithm string

const (
	// AESGCM represents the AES-256-GCM authenticated encryption algorithm.
	//
	// 256-bit key, 12-byte nonce, 16-byte authentication tag. Hardware
	// accelerated on most modern Intel, AMD, and ARM processors. This is the
	// default algorithm for new packages.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 represents the ChaCha20-Poly1305 authenticated encryption algorithm.
	//
	// 256-bit key, 12-byte nonce, 16-byte authentication tag. Constant-time
	// software implementation; preferred on platforms without AES hardware.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

const (
	// KeySize is the required size in bytes for the master key and all derived subkeys.
	KeySize = 32

	// PackageFormatVersion identifies the envelope layout produced by this release.
	PackageFormatVersion = 1

	// DefaultKeyID is the key namespace used when the caller does not choose one.
	DefaultKeyID = "default"

	// InitialKeyVersion is the version assigned to a key id on first use.
	InitialKeyVersion uint = 1
)
