// Package task turns a cart configuration into the natural-language task the
// model executes. The structure (objective, item list, login policy, steps,
// site-specific notes) follows the operator-facing format users already rely
// on; changing section order breaks nothing but re-tests everything, so keep
// additions at the end.
package task

import (
	"fmt"
	"sort"
	"strings"

	"cartagent/internal/config"
)

// Build assembles the full task prompt for a cart run.
func Build(cfg *config.Config) string {
	var b strings.Builder

	b.WriteString("# Web Cart Agent Task\n\n")
	b.WriteString("## Objective\n")
	fmt.Fprintf(&b, "Your task is to navigate to %s, log in to the user's account if required,\n", cfg.Website)
	b.WriteString("search for the following items, and add them to the cart.\n\n")

	b.WriteString("## Items to Add to Cart\n")
	b.WriteString(FormatItems(cfg.Items))

	b.WriteString("## Login Information (if required)\n")
	fmt.Fprintf(&b, "Username/Email: %s\n", cfg.Credentials.Username)
	fmt.Fprintf(&b, "Password: %s\n\n", cfg.Credentials.Password)

	b.WriteString("## Steps to Follow\n")
	fmt.Fprintf(&b, "1. Navigate to %s.\n", cfg.Website)
	b.WriteString(loginPolicy(cfg.Credentials))
	b.WriteString(itemSteps(cfg.Items))
	b.WriteString(`4. After adding all items, navigate to the cart page to confirm all items are in the cart.
5. Do NOT proceed to checkout.

`)

	b.WriteString(`## Important Notes
- NEVER finish the task until all items are added to cart.
- NEVER search Google for login instructions or waiting messages.
- NEVER use the site search box for anything related to login or waiting.
- Be patient during multi-step login flows (username -> password -> OTP/2FA).
- If the login check fails after the user confirms, ask them to double-check that all login steps were completed.

`)

	b.WriteString("## Website-Specific Instructions\n")
	b.WriteString(SiteInstructions(config.SiteLabel(cfg.Website)))
	b.WriteString("\n")

	return b.String()
}

// itemSteps is step 3 of the task. Items carrying a product URL are reached
// directly; everything else goes through the site search.
func itemSteps(items []config.Item) string {
	if !anyItemHasURL(items) {
		return `3. For each item:
   a. Use the search function on the website to search for the item by name.
   b. From the search results, find the most relevant match for the item.
   c. If there are multiple options, try to find the one that best matches the description.
   d. If needed, set quantity and select any specified options before adding to cart.
   e. Click "Add to Cart" or similar button.
   f. Verify the item was successfully added to the cart before proceeding to the next item.
`
	}
	return `3. For each item:
   a. If the item has a Product URL, navigate directly to that URL.
   b. Otherwise, use the search function on the website to search for the item by name
      and pick the most relevant match for the description.
   c. If the product page has size or configuration options, select the specified options,
      or the default options when none are specified.
   d. Set the quantity to the requested amount.
   e. Click "Add to Cart" or similar button.
   f. Verify the item was successfully added to the cart before proceeding to the next item.
`
}

func anyItemHasURL(items []config.Item) bool {
	for _, item := range items {
		if item.URL != "" {
			return true
		}
	}
	return false
}

// FormatItems renders the item list the way the original CLI and UI display
// it: "Item N: name" with indented detail lines.
func FormatItems(items []config.Item) string {
	var b strings.Builder
	for i, item := range items {
		header := item.Name
		if header == "" {
			header = item.URL
		}
		fmt.Fprintf(&b, "Item %d: %s\n", i+1, header)
		if item.URL != "" {
			fmt.Fprintf(&b, "  Product URL: %s\n", item.URL)
		}
		if item.Description != "" {
			fmt.Fprintf(&b, "  Description: %s\n", item.Description)
		}
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		fmt.Fprintf(&b, "  Quantity: %d\n", qty)
		if len(item.Options) > 0 {
			b.WriteString("  Options:\n")
			for _, key := range sortedKeys(item.Options) {
				fmt.Fprintf(&b, "    - %s: %s\n", key, item.Options[key])
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// loginPolicy is step 2 of the task. With credentials the model types them
// in itself; without, it must emit wait_login and hand the browser to the
// human (the gate in internal/agent enforces the actual waiting).
func loginPolicy(creds config.Credentials) string {
	if creds.Provided() {
		return `2. If login is required:
   a. Navigate to the login page (look for "Sign In" or "Login" links).
   b. Enter the username/email and password from the Login Information section.
   c. If the site then asks for OTP, CAPTCHA, or any verification you cannot complete, use the "wait_login" action so the user can finish it manually.
   d. Verify the login succeeded (account name, user-specific elements) before proceeding.
`
	}
	return `2. If login is required:
   a. Navigate to the login page (look for "Sign In" or "Login" links).
   b. Once on the login page, use the "wait_login" action. The browser will alert the user to log in manually and wait until they confirm they are done, including any OTP/2FA steps.
   c. DO NOT navigate away from the login page while waiting.
   d. After "wait_login" returns, verify the login succeeded (account name, user-specific elements) before proceeding.
   e. If the verification fails, use "wait_login" again.
`
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
