package catalog

// Category is a read-only classification owned by the remote catalog.
type Category struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// Product mirrors the remote catalog's product representation. The remote
// service owns the full lifecycle; this process never holds an authoritative
// copy.
type Product struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Price       int      `json:"price"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Images      []string `json:"images"`
}

// ProductPayload is the canonical create/update request body, produced by
// the form validator and sent to the remote service verbatim.
type ProductPayload struct {
	Title       string   `json:"title"`
	Price       int      `json:"price"`
	Description string   `json:"description"`
	CategoryID  int      `json:"categoryId"`
	Images      []string `json:"images"`
}
