package domain

// Domain contains core models shared across packages.

// JokeTypeProgramming is the only joke category the harvester accepts.
const JokeTypeProgramming = "programming"

// Joke is a validated joke record as served by the joke API.
type Joke struct {
	ID        int64  `json:"id"`
	Type      string `json:"type" validate:"eq=programming"`
	Setup     string `json:"setup" validate:"required"`
	Punchline string `json:"punchline" validate:"required"`
}
