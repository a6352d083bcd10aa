package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vsinha/quoting/pkg/application/dto"
	"github.com/vsinha/quoting/pkg/application/services/quoting"
	"github.com/vsinha/quoting/pkg/domain/entities"
	"go.uber.org/zap"
)

type materialRequest struct {
	// ProductID must be one of the node's candidates; null clears the material
	ProductID *int64 `json:"product_id"`
}

type quantityRequest struct {
	Quantity *int64 `json:"quantity" binding:"required"`
}

type alloyRequest struct {
	// AlloyKey null or empty clears the material
	AlloyKey *string `json:"alloy_key"`
}

type eventView struct {
	Type      string      `json:"type"`
	Version   int         `json:"version"`
	Timestamp string      `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func snapshot(session *quoting.Session) *dto.QuoteResult {
	return dto.NewQuoteResult(session.ID(), session.Root(), session.Totals(), session.QuotesGenerated())
}

// CreateSession imports an assembly document and opens a session on it
func (s *Server) CreateSession(c *gin.Context) {
	root, err := s.decoder.Decode(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, entry, err := s.open(root)
	if err != nil {
		s.fail(c, err)
		return
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	c.JSON(http.StatusCreated, snapshot(entry.session))
	s.logger.Info("quote session opened", zap.String("session_id", id))
}

// GetSession returns the flattened tree and totals
func (s *Server) GetSession(c *gin.Context) {
	s.withSession(c, func(session *quoting.Session) {
		c.JSON(http.StatusOK, snapshot(session))
	})
}

// CloseSession disposes a session and its event stream
func (s *Server) CloseSession(c *gin.Context) {
	entry, ok := s.remove(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("session not found: %s", c.Param("id"))})
		return
	}

	entry.mu.Lock()
	entry.session.Close()
	entry.mu.Unlock()

	s.events.DropStream(c.Param("id"))
	s.recorder.SessionClosed()
	c.Status(http.StatusNoContent)
}

// GenerateQuotes runs a full matching and costing pass
func (s *Server) GenerateQuotes(c *gin.Context) {
	s.withSession(c, func(session *quoting.Session) {
		if err := session.GenerateQuotes(c.Request.Context()); err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, snapshot(session))
	})
}

// RecalculateTotals re-sums stored costs
func (s *Server) RecalculateTotals(c *gin.Context) {
	s.withSession(c, func(session *quoting.Session) {
		if err := session.RecalculateTotals(c.Request.Context()); err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, snapshot(session))
	})
}

// GetNode returns a single node
func (s *Server) GetNode(c *gin.Context) {
	s.withSession(c, func(session *quoting.Session) {
		node, err := session.Node(entities.NodeID(c.Param("node")))
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewNodeView(node, 0, string(node.ID)))
	})
}

// UpdateMaterial selects one of the node's candidates, or none
func (s *Server) UpdateMaterial(c *gin.Context) {
	var req materialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.withSession(c, func(session *quoting.Session) {
		nodeID := entities.NodeID(c.Param("node"))
		node, err := session.Node(nodeID)
		if err != nil {
			s.fail(c, err)
			return
		}

		var product *entities.Product
		if req.ProductID != nil {
			product = findCandidate(node.Quote.AvailableMaterials, *req.ProductID)
			if product == nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("product %d is not a candidate for node %s", *req.ProductID, nodeID)})
				return
			}
		}

		if err := session.UpdateMaterial(c.Request.Context(), nodeID, product); err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, snapshot(session))
	})
}

// UpdateQuantity changes a part quantity
func (s *Server) UpdateQuantity(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.withSession(c, func(session *quoting.Session) {
		err := session.UpdateQuantity(c.Request.Context(), entities.NodeID(c.Param("node")), entities.Quantity(*req.Quantity))
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, snapshot(session))
	})
}

// ChangeAlloy re-matches a part within an alloy
func (s *Server) ChangeAlloy(c *gin.Context) {
	var req alloyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.withSession(c, func(session *quoting.Session) {
		nodeID := entities.NodeID(c.Param("node"))
		node, err := session.Node(nodeID)
		if err != nil {
			s.fail(c, err)
			return
		}

		var alloy *entities.Category
		if req.AlloyKey != nil {
			alloy = entities.AlloyByKey(node.Quote.AvailableAlloys, *req.AlloyKey)
		}

		if err := session.ChangeAlloy(c.Request.Context(), nodeID, alloy); err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, snapshot(session))
	})
}

// ListEvents returns the session's recorded changes
func (s *Server) ListEvents(c *gin.Context) {
	s.withSession(c, func(session *quoting.Session) {
		recorded, err := s.events.ReadEvents(session.ID(), 1)
		if err != nil {
			s.fail(c, err)
			return
		}
		views := make([]eventView, len(recorded))
		for i, event := range recorded {
			views[i] = eventView{
				Type:      event.Type(),
				Version:   event.Version(),
				Timestamp: event.Timestamp().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
				Data:      event.Data(),
			}
		}
		c.JSON(http.StatusOK, gin.H{"events": views})
	})
}

func findCandidate(candidates []entities.Product, id int64) *entities.Product {
	for i := range candidates {
		if candidates[i].ID == id {
			product := candidates[i]
			return &product
		}
	}
	return nil
}
