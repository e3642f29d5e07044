package ridehail

// RoleSelectors is the control pair for one location field (origin or
// destination) of the request form.
type RoleSelectors struct {
	Open   string // control that opens the search field
	Input  string // free-text search input
	Submit string // confirm button for the selected result
}

// Selectors maps the abstract UI capabilities the scraper needs onto
// concrete element queries. The queries are volatile, site-owned
// details: they are configuration, not logic, and nothing outside this
// struct hard-codes one.
type Selectors struct {
	// Login flow
	PhoneInput      string
	LoginSubmit     string
	ChallengeDialog string
	ChallengeInput  string
	CodeInput       string

	// Request-entry surface
	CabRequestButton string
	BackButton       string

	// Location search
	Origin      RoleSelectors
	Destination RoleSelectors
	FirstResult string

	// Price displays per service tab. Cab is the default-selected tab.
	CabPrice          string
	BikeTab           string
	BikePrice         string
	BikeDeliveryTab   string
	BikeDeliveryPrice string
}

// ForRole returns the location-search controls for the given role.
func (s *Selectors) ForRole(role Role) RoleSelectors {
	if role == RoleDestination {
		return s.Destination
	}
	return s.Origin
}

// DefaultSelectors returns the element queries for the currently
// deployed web application. Override individual fields when the site
// ships a new build.
func DefaultSelectors() Selectors {
	return Selectors{
		PhoneInput:      `input[data-qa-id="cellphone-number-input"]`,
		LoginSubmit:     `#login-submit`,
		ChallengeDialog: `div[role="dialog"]`,
		ChallengeInput:  `div[role="dialog"] input`,
		CodeInput:       `input[type="tel"]`,

		CabRequestButton: `#ChoiceCab`,
		BackButton:       `button[aria-label="بازگشت"]`,

		Origin: RoleSelectors{
			Open:   `footer h6`,
			Input:  `input[data-qa-id="search-input"]`,
			Submit: `button[data-qa-id="confirm"]`,
		},
		Destination: RoleSelectors{
			Open:   `footer h6`,
			Input:  `input[data-qa-id="search-input"]`,
			Submit: `button[data-qa-id="confirm"]`,
		},
		FirstResult: `li[data-index="0"]`,

		CabPrice:          `footer ul li span[data-qa-id="service-type-price-1"]`,
		BikeTab:           `footer div button:nth-of-type(2)`,
		BikePrice:         `footer ul li span[data-qa-id="service-type-price-7"]`,
		BikeDeliveryTab:   `footer div button:nth-of-type(3)`,
		BikeDeliveryPrice: `footer ul li span[data-qa-id="service-type-price-5"]`,
	}
}

// Role selects which location field a resolver call targets.
type Role string

const (
	RoleOrigin      Role = "origin"
	RoleDestination Role = "destination"
)
