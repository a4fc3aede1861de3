package server

import (
	"errors"

	"estate/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var errSaleParties = errors.New("buyer_id and property_id are required")

// CreateSale handles POST /api/sales
func (s *Server) CreateSale(c *fiber.Ctx) error {
	var in service.CreateSaleInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	if in.BuyerID == uuid.Nil || in.PropertyID == uuid.Nil {
		_ = rejectInvalid(c, errSaleParties)
		return nil
	}
	res, err := s.saleService.Create(c.UserContext(), in)
	return respond(c, res, err)
}

// AlterSale handles PUT /api/sales/:id
func (s *Server) AlterSale(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	var in service.AlterSaleInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	if in.BuyerID == uuid.Nil || in.PropertyID == uuid.Nil {
		_ = rejectInvalid(c, errSaleParties)
		return nil
	}
	in.ID = id

	res, err := s.saleService.Alter(c.UserContext(), in)
	return respond(c, res, err)
}

// DeleteSale handles DELETE /api/sales/:id
func (s *Server) DeleteSale(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.saleService.Delete(c.UserContext(), id)
	return respond(c, res, err)
}

// ListSales handles POST /api/sales/paginate
func (s *Server) ListSales(c *fiber.Ctx) error {
	in, err := parseList(c)
	if err != nil {
		return nil
	}
	res, err := s.saleService.ListSales(c.UserContext(), in)
	return respondPage(c, res, err)
}
