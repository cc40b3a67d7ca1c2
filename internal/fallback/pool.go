// Package fallback provides the compiled-in quote pool that backs every
// delivery path when providers and the cache are unavailable.
//
// The pool is immutable and has no IO, parse, or dependency failure
// modes. Selection logic treats it exactly like a cached batch, so a
// process with no network and no persistence still serves a
// deterministic daily quote.
package fallback

import (
	"github.com/quotedeck/quote-service/internal/domain"
)

// Source is the attribution stamped on every quote served from the pool.
const Source = "fallback"

// Pool is a fixed, read-only set of quotes. All accessors return
// copies; callers can mutate results freely.
type Pool struct {
	quotes []domain.Quote
}

// New returns the built-in pool.
func New() *Pool {
	return &Pool{quotes: builtinQuotes}
}

// Len returns the number of quotes in the pool. Always positive for the
// built-in pool.
func (p *Pool) Len() int {
	return len(p.quotes)
}

// At returns a copy of the quote at index i. The index must be in
// [0, Len()); callers derive it via domain.DailyIndex which already
// reduces modulo Len().
func (p *Pool) At(i int) domain.Quote {
	return p.quotes[i].Clone()
}

// Quotes returns a copy of the whole pool in stable order.
func (p *Pool) Quotes() []domain.Quote {
	return domain.CloneQuotes(p.quotes)
}

// builtinQuotes is the compiled-in pool. Order is part of the selection
// contract: the daily index is position-based, so entries are append-only
// and never reordered.
var builtinQuotes = []domain.Quote{
	{
		ID:       "fb-seneca-luck",
		Text:     "Luck is what happens when preparation meets opportunity.",
		Author:   "Seneca",
		Category: "wisdom",
		Tags:     []string{"preparation", "opportunity"},
		Source:   Source,
	},
	{
		ID:       "fb-aurelius-thoughts",
		Text:     "The happiness of your life depends upon the quality of your thoughts.",
		Author:   "Marcus Aurelius",
		Category: "happiness",
		Tags:     []string{"stoicism", "mind"},
		Source:   Source,
	},
	{
		ID:       "fb-epictetus-control",
		Text:     "It's not what happens to you, but how you react to it that matters.",
		Author:   "Epictetus",
		Category: "wisdom",
		Tags:     []string{"stoicism", "resilience"},
		Source:   Source,
	},
	{
		ID:       "fb-confucius-stop",
		Text:     "It does not matter how slowly you go as long as you do not stop.",
		Author:   "Confucius",
		Category: "perseverance",
		Tags:     []string{"progress"},
		Source:   Source,
	},
	{
		ID:       "fb-laozi-journey",
		Text:     "A journey of a thousand miles begins with a single step.",
		Author:   "Laozi",
		Category: "action",
		Tags:     []string{"beginnings"},
		Source:   Source,
	},
	{
		ID:       "fb-aristotle-habit",
		Text:     "We are what we repeatedly do. Excellence, then, is not an act, but a habit.",
		Author:   "Aristotle",
		Category: "wisdom",
		Tags:     []string{"habit", "excellence"},
		Source:   Source,
	},
	{
		ID:       "fb-socrates-wonder",
		Text:     "Wonder is the beginning of wisdom.",
		Author:   "Socrates",
		Category: "wisdom",
		Tags:     []string{"curiosity"},
		Source:   Source,
	},
	{
		ID:       "fb-davinci-simplicity",
		Text:     "Simplicity is the ultimate sophistication.",
		Author:   "Leonardo da Vinci",
		Category: "creativity",
		Tags:     []string{"simplicity", "design"},
		Source:   Source,
	},
	{
		ID:       "fb-franklin-knowledge",
		Text:     "An investment in knowledge pays the best interest.",
		Author:   "Benjamin Franklin",
		Category: "learning",
		Tags:     []string{"knowledge"},
		Source:   Source,
	},
	{
		ID:       "fb-thoreau-confidence",
		Text:     "Go confidently in the direction of your dreams. Live the life you have imagined.",
		Author:   "Henry David Thoreau",
		Category: "courage",
		Tags:     []string{"dreams", "confidence"},
		Source:   Source,
	},
	{
		ID:       "fb-emerson-trail",
		Text:     "Do not go where the path may lead, go instead where there is no path and leave a trail.",
		Author:   "Ralph Waldo Emerson",
		Category: "courage",
		Tags:     []string{"individuality"},
		Source:   Source,
	},
	{
		ID:       "fb-dickinson-hope",
		Text:     "Hope is the thing with feathers that perches in the soul.",
		Author:   "Emily Dickinson",
		Category: "hope",
		Tags:     []string{"poetry"},
		Source:   Source,
	},
	{
		ID:       "fb-twain-started",
		Text:     "The secret of getting ahead is getting started.",
		Author:   "Mark Twain",
		Category: "action",
		Tags:     []string{"beginnings", "momentum"},
		Source:   Source,
	},
	{
		ID:       "fb-wilde-yourself",
		Text:     "Be yourself; everyone else is already taken.",
		Author:   "Oscar Wilde",
		Category: "humor",
		Tags:     []string{"individuality", "wit"},
		Source:   Source,
	},
	{
		ID:       "fb-nietzsche-why",
		Text:     "He who has a why to live can bear almost any how.",
		Author:   "Friedrich Nietzsche",
		Category: "purpose",
		Tags:     []string{"meaning", "resilience"},
		Source:   Source,
	},
	{
		ID:       "fb-goethe-begin",
		Text:     "Whatever you can do or dream you can, begin it. Boldness has genius, power and magic in it.",
		Author:   "Johann Wolfgang von Goethe",
		Category: "courage",
		Tags:     []string{"boldness", "beginnings"},
		Source:   Source,
	},
	{
		ID:       "fb-suntzu-opportunity",
		Text:     "In the midst of chaos, there is also opportunity.",
		Author:   "Sun Tzu",
		Category: "wisdom",
		Tags:     []string{"strategy", "opportunity"},
		Source:   Source,
	},
	{
		ID:       "fb-rumi-wound",
		Text:     "The wound is the place where the light enters you.",
		Author:   "Rumi",
		Category: "hope",
		Tags:     []string{"healing"},
		Source:   Source,
	},
	{
		ID:       "fb-montaigne-misfortunes",
		Text:     "My life has been full of terrible misfortunes, most of which never happened.",
		Author:   "Michel de Montaigne",
		Category: "humor",
		Tags:     []string{"worry", "perspective"},
		Source:   Source,
	},
	{
		ID:       "fb-voltaire-perfect",
		Text:     "Perfect is the enemy of good.",
		Author:   "Voltaire",
		Category: "wisdom",
		Tags:     []string{"pragmatism"},
		Source:   Source,
	},
	{
		ID:       "fb-keller-door",
		Text:     "When one door of happiness closes, another opens.",
		Author:   "Helen Keller",
		Category: "hope",
		Tags:     []string{"optimism", "change"},
		Source:   Source,
	},
	{
		ID:       "fb-edison-light",
		Text:     "I have not failed. I've just found ten thousand ways that won't work.",
		Author:   "Thomas Edison",
		Category: "perseverance",
		Tags:     []string{"failure", "invention"},
		Source:   Source,
	},
	{
		ID:       "fb-curie-understood",
		Text:     "Nothing in life is to be feared, it is only to be understood.",
		Author:   "Marie Curie",
		Category: "courage",
		Tags:     []string{"science", "fear"},
		Source:   Source,
	},
	{
		ID:       "fb-james-attitude",
		Text:     "The greatest weapon against stress is our ability to choose one thought over another.",
		Author:   "William James",
		Category: "happiness",
		Tags:     []string{"mind", "choice"},
		Source:   Source,
	},
}
