package quiz

import "math/rand"

// MaxQuestions caps how many questions a single quiz draws from a subject.
const MaxQuestions = 10

// Config holds the sampling parameters for a quiz.
type Config struct {
	MaxQuestions int        // <= 0 falls back to MaxQuestions
	Rand         *rand.Rand // nil = package-level source
}

// DefaultConfig returns a config drawing at most MaxQuestions questions.
func DefaultConfig() Config {
	return Config{
		MaxQuestions: MaxQuestions,
		Rand:         nil,
	}
}
