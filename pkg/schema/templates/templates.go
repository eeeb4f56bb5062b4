// Package templates provides built-in extraction schemas for common
// content types. Each template pairs a typed result struct with
// extraction instructions tuned for that content.
package templates

// Ingredient is a single recipe ingredient with quantity and unit.
type Ingredient struct {
	Name     string `json:"name" description:"Ingredient name"`
	Quantity string `json:"quantity,omitempty" description:"Amount needed"`
	Unit     string `json:"unit,omitempty" description:"Unit of measurement"`
	Notes    string `json:"notes,omitempty" description:"Additional notes"`
}

// Recipe is structured information extracted from recipe text.
type Recipe struct {
	Name         string         `json:"name" description:"Recipe name or title" validate:"required"`
	Description  string         `json:"description,omitempty" description:"Brief description of the dish"`
	Cuisine      string         `json:"cuisine,omitempty" description:"Cuisine type (Italian, Asian, etc.)"`
	Difficulty   string         `json:"difficulty,omitempty" description:"Difficulty level (easy, medium, hard)"`
	PrepTime     string         `json:"prep_time,omitempty" description:"Preparation time"`
	CookTime     string         `json:"cook_time,omitempty" description:"Cooking time"`
	TotalTime    string         `json:"total_time,omitempty" description:"Total time required"`
	Servings     int            `json:"servings,omitempty" description:"Number of servings"`
	Ingredients  []Ingredient   `json:"ingredients,omitempty" description:"List of ingredients with quantities"`
	Instructions []string       `json:"instructions,omitempty" description:"Step-by-step cooking instructions"`
	Tags         []string       `json:"tags,omitempty" description:"Recipe tags (vegetarian, gluten-free, etc.)"`
	Nutrition    map[string]any `json:"nutrition,omitempty" description:"Nutritional information if available"`
}

const recipeInstructions = `Extract structured information from the recipe text.
Focus on identifying:
- Recipe name and description
- Timing information (prep, cook, total time)
- Complete ingredients list with quantities and units
- Step-by-step instructions
- Difficulty level and serving information
- Any dietary tags or restrictions

For ingredients, try to separate quantity, unit, and ingredient name.
If information is not available, leave fields empty.`

// JobDescription is structured information extracted from a job posting.
type JobDescription struct {
	Title            string   `json:"title" description:"Job title or position name" validate:"required"`
	Company          string   `json:"company" description:"Company name" validate:"required"`
	Location         string   `json:"location,omitempty" description:"Job location"`
	EmploymentType   string   `json:"employment_type,omitempty" description:"Employment type (full-time, part-time, contract, etc.)"`
	ExperienceLevel  string   `json:"experience_level,omitempty" description:"Required experience level (entry, mid, senior, etc.)"`
	SalaryRange      string   `json:"salary_range,omitempty" description:"Salary range or compensation information"`
	RequiredSkills   []string `json:"required_skills,omitempty" description:"Required technical skills and technologies"`
	PreferredSkills  []string `json:"preferred_skills,omitempty" description:"Preferred or nice-to-have skills"`
	Responsibilities []string `json:"responsibilities,omitempty" description:"Key job responsibilities and duties"`
	Requirements     []string `json:"requirements,omitempty" description:"Job requirements and qualifications"`
	Benefits         []string `json:"benefits,omitempty" description:"Benefits and perks offered"`
	RemoteWork       *bool    `json:"remote_work,omitempty" description:"Whether remote work is available"`
}

const jobInstructions = `Extract structured information from the job description.
Focus on identifying:
- Job title and company information
- Location and employment details
- Required and preferred skills
- Responsibilities and requirements
- Compensation and benefits

If information is not explicitly mentioned, leave the field empty or null.`

// Event is structured information extracted from an event description
// or announcement.
type Event struct {
	Title           string   `json:"title" description:"Event title or name" validate:"required"`
	Description     string   `json:"description,omitempty" description:"Event description or summary"`
	EventType       string   `json:"event_type,omitempty" description:"Type of event: conference, workshop, party, meeting, etc."`
	Category        string   `json:"category,omitempty" description:"Category: business, social, educational, cultural, etc."`
	StartDate       string   `json:"start_date,omitempty" description:"Start date of the event"`
	EndDate         string   `json:"end_date,omitempty" description:"End date of the event"`
	StartTime       string   `json:"start_time,omitempty" description:"Start time"`
	EndTime         string   `json:"end_time,omitempty" description:"End time"`
	Timezone        string   `json:"timezone,omitempty" description:"Timezone if specified"`
	VenueName       string   `json:"venue_name,omitempty" description:"Name of the venue"`
	Address         string   `json:"address,omitempty" description:"Full address of the event"`
	City            string   `json:"city,omitempty" description:"City where event takes place"`
	Country         string   `json:"country,omitempty" description:"Country"`
	IsVirtual       *bool    `json:"is_virtual,omitempty" description:"Whether the event is virtual/online"`
	VirtualPlatform string   `json:"virtual_platform,omitempty" description:"Platform for virtual events"`
	OrganizerName   string   `json:"organizer_name,omitempty" description:"Name of the organizing person or entity"`
	Capacity        int      `json:"capacity,omitempty" description:"Maximum number of attendees"`
	Registration    *bool    `json:"registration_required,omitempty" description:"Whether registration is required"`
	Cost            string   `json:"cost,omitempty" description:"Cost or price to attend"`
	IsFree          *bool    `json:"is_free,omitempty" description:"Whether the event is free"`
	AgendaTopics    []string `json:"agenda_topics,omitempty" description:"Main topics or agenda items"`
	Speakers        []string `json:"speakers,omitempty" description:"Names of speakers or presenters"`
	Website         string   `json:"website,omitempty" description:"Event website"`
	ContactEmail    string   `json:"contact_email,omitempty" description:"Contact email for inquiries"`
	Tags            []string `json:"tags,omitempty" description:"Tags or keywords associated with the event"`
}

const eventInstructions = `Extract structured information from the event description or announcement.
Focus on identifying:
- Event title, type, and description
- Date, time, and location details (including virtual platform if applicable)
- Organizer and contact information
- Registration requirements and costs
- Speakers, agenda topics, and target audience

If information is not explicitly mentioned, leave the field empty or null.
For date/time fields, preserve the original format when possible.
Extract all relevant items for list fields.`

// ProductReview is structured information extracted from a product review.
type ProductReview struct {
	ProductName        string   `json:"product_name" description:"Name of the product being reviewed" validate:"required"`
	Brand              string   `json:"brand,omitempty" description:"Brand of the product"`
	Rating             *float64 `json:"rating,omitempty" description:"Rating given (1-5 stars or similar scale)"`
	OverallSentiment   string   `json:"overall_sentiment" description:"Overall sentiment: positive, negative, or neutral" validate:"required"`
	ReviewerName       string   `json:"reviewer_name,omitempty" description:"Name of the reviewer if mentioned"`
	PurchaseVerified   *bool    `json:"purchase_verified,omitempty" description:"Whether the purchase was verified"`
	Title              string   `json:"title,omitempty" description:"Title of the review"`
	Summary            string   `json:"summary,omitempty" description:"Brief summary of the review"`
	Pros               []string `json:"pros,omitempty" description:"Positive aspects mentioned in the review"`
	Cons               []string `json:"cons,omitempty" description:"Negative aspects mentioned in the review"`
	ValueForMoney      string   `json:"value_for_money,omitempty" description:"Comments about value for money"`
	Quality            string   `json:"quality,omitempty" description:"Comments about product quality"`
	EaseOfUse          string   `json:"ease_of_use,omitempty" description:"Comments about ease of use"`
	WouldRecommend     *bool    `json:"would_recommend,omitempty" description:"Whether reviewer would recommend the product"`
	RecommendFor       []string `json:"recommend_for,omitempty" description:"Who or what situations this product is recommended for"`
	UsageDuration      string   `json:"usage_duration,omitempty" description:"How long the reviewer has used the product"`
	ComparisonProducts []string `json:"comparison_products,omitempty" description:"Other products mentioned for comparison"`
}

const reviewInstructions = `Extract structured information from the product review.
Focus on identifying:
- Product name, brand, and overall rating/sentiment
- Reviewer information if available
- Key positive and negative points (pros and cons)
- Specific aspects like quality, value, ease of use
- Recommendations and comparisons
- Duration of use and verification status

If information is not explicitly mentioned, leave the field empty or null.
For lists, extract all relevant items mentioned.`
