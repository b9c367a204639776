package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"goflare.io/storefront"
	"goflare.io/storefront/models"
	"goflare.io/storefront/session"
)

const usage = `commands:
  products [page]                      list a page of the catalog
  product <id>                         show one product
  new-product <price> <name...>        add a product (admin)
  delete-product <id>                  remove a product (admin)
  add <id> | inc <id> | dec <id> | remove <id> | clear
  cart                                 show the cart, item count and subtotal
  save-cart | restore-cart
  checkout                             print the payment page URL
  comments <product-id> [page]
  comment <product-id> <text...>
  edit-comment <id> <text...>
  delete-comment <id>
  register <email> <password> <name> <surname> <age>
  login <email> <password>
  logout
  reset-password <email>
  whoami
  quit`

var errQuit = errors.New("quit")

type shell struct {
	svc      storefront.Service
	pageSize int
	out      io.Writer
}

func (sh *shell) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	sh.printf("> ")
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}

		err := sh.exec(ctx, strings.Fields(scanner.Text()))
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			sh.printf("error: %v\n", err)
		}
		sh.printf("> ")
	}
	return scanner.Err()
}

func (sh *shell) exec(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return nil
	}
	cmd, args := args[0], args[1:]

	switch cmd {
	case "help":
		sh.printf("%s\n", usage)
	case "quit", "exit":
		return errQuit

	case "products":
		page, err := pageArg(args, 0)
		if err != nil {
			return err
		}
		p, err := sh.svc.LoadProducts(ctx, page, sh.pageSize)
		if err != nil {
			return err
		}
		for _, item := range p.Items {
			sh.printf("%s  %-30s %10s  %s\n", item.ID, item.Name, item.Price.StringFixed(2), item.Category)
		}
		sh.printf("page %d, more: %t\n", p.Page, p.HasMore)
	case "product":
		if err := want(args, 1); err != nil {
			return err
		}
		p, err := sh.svc.GetProduct(ctx, args[0])
		if err != nil {
			return err
		}
		sh.printf("%s\n%s\n%s\n", p.Name, p.Price.StringFixed(2), p.Description)
	case "new-product":
		if err := want(args, 2); err != nil {
			return err
		}
		price, err := decimal.NewFromString(args[0])
		if err != nil {
			return models.Invalid("invalid price %q", args[0])
		}
		p, err := sh.svc.CreateProduct(ctx, models.Product{Name: strings.Join(args[1:], " "), Price: price})
		if err != nil {
			return err
		}
		sh.printf("created %s\n", p.ID)
	case "delete-product":
		if err := want(args, 1); err != nil {
			return err
		}
		return sh.svc.DeleteProduct(ctx, args[0])

	case "add":
		if err := want(args, 1); err != nil {
			return err
		}
		p, err := sh.findProduct(ctx, args[0])
		if err != nil {
			return err
		}
		if sh.svc.AddToCart(*p) {
			sh.printf("added %s\n", p.Name)
		} else {
			sh.printf("%s is already in the cart\n", p.Name)
		}
	case "inc", "dec", "remove":
		if err := want(args, 1); err != nil {
			return err
		}
		switch cmd {
		case "inc":
			sh.svc.IncrementQuantity(args[0])
		case "dec":
			sh.svc.DecrementQuantity(args[0])
		default:
			sh.svc.RemoveFromCart(args[0])
		}
	case "clear":
		sh.svc.ClearCart()
	case "cart":
		for _, line := range sh.svc.CartLines() {
			sh.printf("%s  %-30s %4d x %10s\n", line.ProductID, line.Name, line.Quantity, line.UnitPrice.StringFixed(2))
		}
		sh.printf("%d item(s), subtotal %s\n", sh.svc.CartQuantity(), sh.svc.Subtotal().StringFixed(2))
	case "save-cart":
		return sh.svc.SaveCart(ctx)
	case "restore-cart":
		return sh.svc.RestoreCart(ctx)
	case "checkout":
		url, err := sh.svc.Checkout(ctx)
		if err != nil {
			return err
		}
		sh.printf("pay at %s\n", url)

	case "comments":
		if err := want(args, 1); err != nil {
			return err
		}
		page, err := pageArg(args, 1)
		if err != nil {
			return err
		}
		p, err := sh.svc.LoadComments(ctx, args[0], page, sh.pageSize)
		if err != nil {
			return err
		}
		for _, c := range p.Items {
			sh.printf("%s  %s (%s): %s\n", c.ID, c.AuthorName, c.CreatedAt.Format("2006-01-02 15:04"), c.Content)
		}
		sh.printf("page %d, more: %t\n", p.Page, p.HasMore)
	case "comment":
		if err := want(args, 2); err != nil {
			return err
		}
		c, err := sh.svc.CreateComment(ctx, args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		sh.printf("posted %s\n", c.ID)
	case "edit-comment":
		if err := want(args, 2); err != nil {
			return err
		}
		_, err := sh.svc.EditComment(ctx, args[0], strings.Join(args[1:], " "))
		return err
	case "delete-comment":
		if err := want(args, 1); err != nil {
			return err
		}
		return sh.svc.DeleteComment(ctx, args[0])

	case "register":
		if err := want(args, 5); err != nil {
			return err
		}
		age, err := strconv.ParseInt(args[4], 10, 64)
		if err != nil {
			return models.Invalid("invalid age %q", args[4])
		}
		s, err := sh.svc.Register(ctx, session.RegisterInput{Email: args[0], Password: args[1], Name: args[2], Surname: args[3], Age: age})
		if err != nil {
			return err
		}
		sh.printf("welcome %s\n", s.DisplayName)
	case "login":
		if err := want(args, 2); err != nil {
			return err
		}
		s, err := sh.svc.Login(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		sh.printf("signed in as %s (%s)\n", s.DisplayName, s.Role)
	case "logout":
		return sh.svc.Logout(ctx)
	case "reset-password":
		if err := want(args, 1); err != nil {
			return err
		}
		return sh.svc.SendPasswordReset(ctx, args[0])
	case "whoami":
		s := sh.svc.CurrentSession()
		if s == nil {
			sh.printf("not signed in\n")
			return nil
		}
		sh.printf("%s <%s> %s\n", s.DisplayName, s.Email, s.Role)

	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
	return nil
}

// findProduct prefers the loaded page so adding to the cart needs no round trip.
func (sh *shell) findProduct(ctx context.Context, id string) (*models.Product, error) {
	for _, p := range sh.svc.Products() {
		if p.ID == id {
			return &p, nil
		}
	}
	return sh.svc.GetProduct(ctx, id)
}

func (sh *shell) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(sh.out, format, args...)
}

func want(args []string, n int) error {
	if len(args) < n {
		return models.Invalid("expected at least %d argument(s), try help", n)
	}
	return nil
}

func pageArg(args []string, i int) (int, error) {
	if len(args) <= i {
		return 1, nil
	}
	page, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, models.Invalid("invalid page %q", args[i])
	}
	return page, nil
}
