package configurator

// Record is the external design record built from a completed wizard. The
// answer tags drive the pruned answer-set decode; fields from branches the
// user never took stay at their zero value.
type Record struct {
	Email        string `answer:"email"`
	ExistingUser bool   `answer:"isExistingUser"`

	FirstName string `answer:"firstName"`
	LastName  string `answer:"lastName"`
	Phone     string `answer:"phone"`

	ProductLine  string `answer:"productLine"`
	StyleChoice  string `answer:"styleChoice"`
	PaletteColor string `answer:"paletteColor"`
	ColorHex     string `answer:"colorHex"`
	IconChoice   string `answer:"iconChoice"`
	Icon         string `answer:"icon"`

	Actives     []string `answer:"actives"`
	BaseTexture string   `answer:"baseTexture"`

	ProductName string   `answer:"productName"`
	Claims      []string `answer:"claims"`
	Packaging   string   `answer:"packaging"`
}

// HotFields are the answers mirrored into the fast cache on every save, so
// a rebuilt session can greet the user and route support lookups without a
// full store read.
var HotFields = []string{"email", "productName", "productLine"}
