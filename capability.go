package protected

// Algorithm names a protect provider implementation.
// The CLI and configuration files select providers by these names.
type Algorithm string

const (
	// AlgorithmAES uses AES-GCM with purpose-derived keys.
	AlgorithmAES Algorithm = "aes"

	// AlgorithmRSA uses RSA-OAEP with the purpose as label.
	AlgorithmRSA Algorithm = "rsa"

	// AlgorithmKMS delegates to AWS KMS.
	AlgorithmKMS Algorithm = "kms"

	// AlgorithmPassthrough leaves values unchanged. For tests only.
	AlgorithmPassthrough Algorithm = "passthrough"
)

// validAlgorithms contains all known provider algorithms.
var validAlgorithms = map[Algorithm]bool{
	AlgorithmAES:         true,
	AlgorithmRSA:         true,
	AlgorithmKMS:         true,
	AlgorithmPassthrough: true,
}

// IsValidAlgorithm returns true if the algorithm is a known provider algorithm.
func IsValidAlgorithm(algo Algorithm) bool {
	return validAlgorithms[algo]
}

// Algorithms returns the known provider algorithms.
func Algorithms() []Algorithm {
	return []Algorithm{AlgorithmAES, AlgorithmRSA, AlgorithmKMS, AlgorithmPassthrough}
}
