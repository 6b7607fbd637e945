package task

// Per-site instruction blocks appended to the task prompt. Keys are bare
// site labels (config.SiteLabel output).
var siteInstructions = map[string]string{
	"amazon": `- For Amazon, use the search bar at the top of the page.
- Be aware of sponsored results vs. regular results.
- If there are "Buy Now" vs "Add to Cart" buttons, use "Add to Cart".
- If prompted about protection plans or additional offerings, decline them.
- Check for the cart confirmation message or icon update at the top right.
- For quantity changes, use the dropdown or quantity selector before adding to cart.
- For login verification, check for the presence of "Hello, [Name]" in the top right or "Account & Lists" dropdown.
- Amazon typically uses a multi-step login process (email first, then password). Make sure all steps are completed.
- If OTP verification is required, wait until the user inputs the verification code.`,

	"walmart": `- For Walmart, use the search bar at the top of the page.
- Pay attention to the "Sold and shipped by" information to ensure you're getting items from Walmart directly if possible.
- If prompted about protection plans or warranties, decline them.
- If asked about pickup vs delivery, skip this step as we're only adding to cart.
- For quantity, use the "+" button to increase or directly update the quantity field.
- For login verification, check for the presence of account name or "Account" indicator that shows the user is logged in.`,

	"target": `- For Target, use the search bar at the top of the page.
- Pay attention to "Sold and shipped by" to prioritize items sold directly by Target.
- If prompted about protection plans or warranties, decline them.
- For quantity, use the quantity selector before adding to cart.
- For login verification, check for "Hi, [Name]" or the account icon in the top right.`,

	"bestbuy": `- For Best Buy, use the search bar at the top of the page.
- If prompted about protection plans or memberships, decline them.
- If asked about store pickup vs shipping, skip this step.
- For quantity, update the quantity selector before adding to cart.
- For login verification, check for the account name or "Account" indicator in the top right.`,

	"ebay": `- For eBay, use the search bar at the top of the page.
- Filter for "Buy It Now" items to avoid auctions, unless instructed otherwise.
- For item variations (size, color, etc.), select them from the dropdown menus before adding to cart.
- For quantity, update the quantity field before clicking "Add to cart".
- For login verification, check for the username or a "My eBay" dropdown in the top right.`,

	"newegg": `- For Newegg, use the search bar at the top of the page.
- Pay attention to "Sold and shipped by" information to prioritize items sold by Newegg.
- If there are combo deals or add-ons suggested, you can skip those.
- Be aware of the "Auto-Add" features - deselect anything the user didn't specify.
- For login verification, check for "Hi, [Name]" or account indicators in the top right.`,
}

const genericInstructions = `- Use the search bar at the top of the page to find each item.
- Try different search terms if you can't find an exact match for an item.
- For quantity changes, update the quantity field before adding to cart.
- If prompted about additional options or warranties, decline them.
- If there are product variations (size, color, etc.), select them before adding to cart.
- For login verification, look for account name, user-specific elements, or welcome messages.`

// SiteInstructions returns the instruction block for a known site label and
// a generic fallback otherwise.
func SiteInstructions(label string) string {
	if s, ok := siteInstructions[label]; ok {
		return s
	}
	return genericInstructions
}

// KnownSite reports whether a dedicated instruction block exists.
func KnownSite(label string) bool {
	_, ok := siteInstructions[label]
	return ok
}
