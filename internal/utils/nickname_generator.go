package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var adjectives = []string{
	"Spinning", "Looping", "Chopping", "Blocking", "Smashing",
	"Swift", "Tricky", "Steady", "Fearless", "Twirling",
	"Crafty", "Patient", "Explosive", "Tactical", "Relentless",
	"Defensive", "Offensive", "Flicking", "Counterattacking", "Serving",
}

var nouns = []string{
	"Paddle", "Blade", "Chopper", "Looper", "Blocker",
	"Penholder", "Shakehander", "Lobber", "Smasher", "Spinner",
	"Server", "Returner", "Twiddler", "Pusher", "Driver",
	"Attacker", "Defender", "AllRounder", "Counterhitter", "Flicker",
}

// GenerateNickname creates a random display name in the format
// "Adjective_Noun_XXXX" where XXXX is a random 4-digit number, used for
// accounts registered without a display name
func GenerateNickname() (string, error) {
	// Pick random adjective
	adjIdx, err := rand.Int(rand.Reader, big.NewInt(int64(len(adjectives))))
	if err != nil {
		return "", fmt.Errorf("failed to generate random adjective: %w", err)
	}

	// Pick random noun
	nounIdx, err := rand.Int(rand.Reader, big.NewInt(int64(len(nouns))))
	if err != nil {
		return "", fmt.Errorf("failed to generate random noun: %w", err)
	}

	// Generate random 4-digit suffix
	suffix, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("failed to generate random suffix: %w", err)
	}

	nickname := fmt.Sprintf("%s_%s_%04d",
		adjectives[adjIdx.Int64()],
		nouns[nounIdx.Int64()],
		suffix.Int64(),
	)

	return nickname, nil
}
