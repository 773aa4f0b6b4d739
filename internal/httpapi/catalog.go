package httpapi

import (
	"net/http"

	"credit-store/internal/audit"
	"credit-store/internal/catalog"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type productRequest struct {
	ProviderProductID string `json:"provider_product_id"`
	Name              string `json:"name"`
	Category          string `json:"category"`
	CostPerUnit       string `json:"cost_per_unit"`
	Profit1           string `json:"profit_1"`
	Profit2           string `json:"profit_2,omitempty"`
	Profit3           string `json:"profit_3,omitempty"`
	Profit4           string `json:"profit_4,omitempty"`
	MinQty            int    `json:"min_qty"`
	MaxQty            int    `json:"max_qty"`
	UnitLabel         string `json:"unit_label"`
	Active            bool   `json:"active"`
}

func (r productRequest) toProduct() (catalog.Product, error) {
	p := catalog.Product{
		ProviderProductID: r.ProviderProductID,
		Name:              r.Name,
		Category:          r.Category,
		MinQty:            r.MinQty,
		MaxQty:            r.MaxQty,
		UnitLabel:         r.UnitLabel,
		Active:            r.Active,
	}
	var err error
	if p.CostPerUnit, err = decimal.NewFromString(r.CostPerUnit); err != nil {
		return catalog.Product{}, err
	}
	if p.Profit1, err = decimal.NewFromString(r.Profit1); err != nil {
		return catalog.Product{}, err
	}
	for _, f := range []struct {
		raw string
		dst *decimal.Decimal
	}{
		{r.Profit2, &p.Profit2},
		{r.Profit3, &p.Profit3},
		{r.Profit4, &p.Profit4},
	} {
		if f.raw == "" {
			continue
		}
		if *f.dst, err = decimal.NewFromString(f.raw); err != nil {
			return catalog.Product{}, err
		}
	}
	return p, nil
}

func (h Handlers) ListProducts(c *gin.Context) {
	activeOnly := c.Query("all") == ""
	list, err := h.Catalog.ListProducts(c.Request.Context(), activeOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": list})
}

func (h Handlers) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := req.toProduct()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid decimal field"})
		return
	}
	created, err := h.Catalog.CreateProduct(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	h.auditCatalog(c, "product created: "+created.Name)
	c.JSON(http.StatusCreated, created)
}

func (h Handlers) UpdateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := req.toProduct()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid decimal field"})
		return
	}
	p.ID = c.Param("id")
	updated, err := h.Catalog.UpdateProduct(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	h.auditCatalog(c, "product updated: "+updated.Name)
	c.JSON(http.StatusOK, updated)
}

type methodRequest struct {
	Name    string `json:"name"`
	Details string `json:"details"`
	Note    string `json:"note,omitempty"`
	Active  bool   `json:"active"`
}

func (h Handlers) ListMethods(c *gin.Context) {
	activeOnly := c.Query("all") == ""
	list, err := h.Catalog.ListMethods(c.Request.Context(), activeOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"methods": list})
}

func (h Handlers) CreateMethod(c *gin.Context) {
	var req methodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	created, err := h.Catalog.CreateMethod(c.Request.Context(), catalog.TopupMethod{
		Name:    req.Name,
		Details: req.Details,
		Note:    req.Note,
		Active:  req.Active,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.auditCatalog(c, "method created: "+created.Name)
	c.JSON(http.StatusCreated, created)
}

func (h Handlers) UpdateMethod(c *gin.Context) {
	var req methodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	updated, err := h.Catalog.UpdateMethod(c.Request.Context(), catalog.TopupMethod{
		ID:      c.Param("id"),
		Name:    req.Name,
		Details: req.Details,
		Note:    req.Note,
		Active:  req.Active,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.auditCatalog(c, "method updated: "+updated.Name)
	c.JSON(http.StatusOK, updated)
}

type rateRequest struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
}

func (h Handlers) SetRate(c *gin.Context) {
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	value, err := decimal.NewFromString(req.Value)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid value"})
		return
	}
	rate, err := h.Catalog.SetRate(c.Request.Context(), req.From, req.To, value)
	if err != nil {
		respondError(c, err)
		return
	}
	h.auditCatalog(c, "rate set: "+req.From+"/"+req.To+" = "+value.String())
	c.JSON(http.StatusOK, rate)
}

func (h Handlers) auditCatalog(c *gin.Context, message string) {
	if h.Audit == nil {
		return
	}
	actorID, actorRole := actor(c)
	_ = h.Audit.Append(c.Request.Context(), audit.Event{
		Type:         audit.EventTypeCatalogChange,
		ActorAdminID: actorID,
		ActorRole:    actorRole,
		IPAddress:    c.ClientIP(),
		Message:      message,
	})
}
