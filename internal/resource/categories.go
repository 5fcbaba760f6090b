package resource

// Category is a Ramp spend category; transactions and vendors reference it by
// sk_category_id.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

var categories = []Category{
	{1, "Advertising"},
	{2, "Airlines"},
	{3, "Alcohol and Bars"},
	{4, "Books and Newspaper"},
	{5, "Car Rental"},
	{6, "Charity"},
	{7, "Clothing"},
	{8, "Conferences"},
	{9, "Education"},
	{10, "Electronics"},
	{11, "Entertainment"},
	{12, "Facilities Expenses"},
	{13, "Fees"},
	{14, "Food Delivery"},
	{15, "Fuel and Gas"},
	{16, "Gambling"},
	{17, "Government Services"},
	{18, "Grocery"},
	{19, "Ground Transportation"},
	{20, "Insurance"},
	{21, "Internet and Telephone"},
	{22, "Legal"},
	{23, "Lodging"},
	{24, "Medical"},
	{25, "Memberships"},
	{26, "Office Supplies and Cleaning"},
	{27, "Other"},
	{28, "Parking"},
	{29, "Political"},
	{30, "Professional Services"},
	{31, "Restaurants"},
	{32, "Retail"},
	{33, "Rideshare and Taxis"},
	{34, "Shipping"},
	{35, "Software"},
	{36, "Taxes"},
	{37, "Travel"},
	{38, "Utilities"},
	{39, "Vehicle Expenses"},
	{40, "Digital Goods"},
}

// Categories returns the Ramp category list.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}
