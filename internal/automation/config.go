package automation

import "time"

// Selectors address the retailer's page contract.
type Selectors struct {
	SearchInput     string `yaml:"search_input" json:"search_input"`
	SearchButton    string `yaml:"search_button" json:"search_button"`
	ResultCard      string `yaml:"result_card" json:"result_card"`
	CardDescription string `yaml:"card_description" json:"card_description"`
	AddToCart       string `yaml:"add_to_cart" json:"add_to_cart"`
}

// Timings holds every wait used by the per-item procedure.
type Timings struct {
	PollInterval        time.Duration
	SearchInputTimeout  time.Duration
	InputSettle         time.Duration
	SearchButtonTimeout time.Duration
	ResultsTimeout      time.Duration
	ResultsBackoff      float64
	ResultsMaxInterval  time.Duration
	ScrollSettle        time.Duration
	AddSettle           time.Duration
	PacingMin           time.Duration
	PacingMax           time.Duration
}

// Config configures a Routine.
type Config struct {
	Selectors Selectors
	Timings   Timings
	// RequireSearchForm fails an item when the search input is not inside a form.
	RequireSearchForm bool
}

// DefaultSelectors returns the Harris Teeter markup selectors.
func DefaultSelectors() Selectors {
	return Selectors{
		SearchInput:     `input#SearchBar-input`,
		SearchButton:    `button[aria-label="search"]`,
		ResultCard:      `div[data-testid^="product-card-"]`,
		CardDescription: `span[data-testid="cart-page-item-description"]`,
		AddToCart:       `button[data-testid="kds-QuantityStepper-ctaButton"]`,
	}
}

// DefaultTimings returns the production pacing.
func DefaultTimings() Timings {
	return Timings{
		PollInterval:        100 * time.Millisecond,
		SearchInputTimeout:  10 * time.Second,
		InputSettle:         500 * time.Millisecond,
		SearchButtonTimeout: 5 * time.Second,
		ResultsTimeout:      3 * time.Second,
		ResultsBackoff:      1.5,
		ResultsMaxInterval:  time.Second,
		ScrollSettle:        500 * time.Millisecond,
		AddSettle:           2 * time.Second,
		PacingMin:           2 * time.Second,
		PacingMax:           3 * time.Second,
	}
}

// DefaultConfig returns the production routine configuration.
func DefaultConfig() Config {
	return Config{
		Selectors:         DefaultSelectors(),
		Timings:           DefaultTimings(),
		RequireSearchForm: true,
	}
}

// MinItemDelay is the least time a successfully added item spends in fixed
// waits, excluding inter-item pacing.
func (t Timings) MinItemDelay() time.Duration {
	return t.InputSettle + t.ScrollSettle + t.AddSettle
}
