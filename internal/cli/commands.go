package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/domain"
)

// stringList collects a repeated flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// optionalFloat tracks whether a numeric flag was given at all.
type optionalFloat struct {
	value *float64
}

func (f *optionalFloat) String() string {
	if f.value == nil {
		return ""
	}
	return fmt.Sprint(*f.value)
}

func (f *optionalFloat) Set(v string) error {
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q", v)
	}
	f.value = &parsed
	return nil
}

func (c *CLI) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.out)
	return fs
}

func (c *CLI) handleListings(ctx context.Context, args []string) error {
	fs := c.newFlagSet("listings")
	var queryText, condition stringFlag
	var minPrice, maxPrice optionalFloat
	fs.Var(&queryText, "query", "free-text search")
	fs.Var(&condition, "condition", "condition filter")
	fs.Var(&minPrice, "min", "minimum price")
	fs.Var(&maxPrice, "max", "maximum price")
	if err := fs.Parse(args); err != nil {
		return err
	}

	params := domain.ListingSearchParams{
		Query:     queryText.value,
		Condition: condition.value,
		MinPrice:  minPrice.value,
		MaxPrice:  maxPrice.value,
	}
	res := c.clients.Listings.Listings(ctx, params)
	if res.IsError() {
		return res.Err
	}
	c.printListings(res.Data)
	return nil
}

// stringFlag is a string flag that stays nil unless given.
type stringFlag struct {
	value *string
}

func (f *stringFlag) String() string {
	if f.value == nil {
		return ""
	}
	return *f.value
}

func (f *stringFlag) Set(v string) error {
	f.value = &v
	return nil
}

func (c *CLI) handleListing(ctx context.Context, args []string) error {
	id := ""
	if len(args) > 0 {
		id = args[0]
	}
	res := c.clients.Listing.Listing(ctx, id)
	switch {
	case res.IsDisabled():
		return fmt.Errorf("usage: listing <id>")
	case res.IsError():
		return res.Err
	}

	l := res.Data
	if err := c.printJSON(l); err != nil {
		return err
	}
	for _, img := range l.Images {
		if u := domain.ImageURL(c.baseURL, img); u != "" {
			fmt.Fprintln(c.out, "image:", u)
		}
	}
	return nil
}

func (c *CLI) handleCreate(ctx context.Context, args []string) error {
	fs := c.newFlagSet("create")
	title := fs.String("title", "", "listing title")
	description := fs.String("description", "", "listing description")
	condition := fs.String("condition", "", "condition: "+strings.Join(domain.Conditions(), ", "))
	var price optionalFloat
	var images stringList
	fs.Var(&price, "price", "price")
	fs.Var(&images, "image", "photo path, repeatable")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if price.value == nil {
		return fmt.Errorf("%w: price is required", domain.ErrInvalidListing)
	}

	in := domain.NewListing{
		Title:       *title,
		Description: *description,
		Price:       *price.value,
		Condition:   *condition,
	}
	var files []io.Closer
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()
	for _, path := range images {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open image: %w", err)
		}
		files = append(files, f)
		in.Images = append(in.Images, domain.ImageFile{
			Name:        filepath.Base(path),
			ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
			Data:        f,
		})
	}

	created, err := c.clients.Listings.CreateListing(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Created listing %s\n", created.ID)
	return nil
}

func (c *CLI) password(args []string, idx int) (string, error) {
	if len(args) > idx {
		return args[idx], nil
	}
	if c.readPassword == nil {
		return "", errors.New("password required")
	}
	return c.readPassword("Password: ")
}

func (c *CLI) handleLogin(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: login <email> [password]")
	}
	password, err := c.password(args, 1)
	if err != nil {
		return err
	}
	resp, err := c.clients.Auth.Login(ctx, args[0], password)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Logged in as %s\n", displayName(resp.User))
	return nil
}

func (c *CLI) handleRegister(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: register <email> <pseudo> [password]")
	}
	password, err := c.password(args, 2)
	if err != nil {
		return err
	}
	resp, err := c.clients.Auth.Register(ctx, args[0], password, args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Registered and logged in as %s\n", displayName(resp.User))
	return nil
}

func displayName(u domain.User) string {
	if u.Pseudo != "" {
		return u.Pseudo
	}
	return u.Email
}

func (c *CLI) handleMe(ctx context.Context) error {
	res := c.clients.Auth.CurrentUser(ctx)
	if res.IsError() {
		return res.Err
	}
	return c.printJSON(res.Data)
}

// currentUserID prefers the id carried by the token and falls back to /api/me.
func (c *CLI) currentUserID(ctx context.Context) (string, error) {
	if id, ok := c.clients.Session.UserID(); ok {
		return id, nil
	}
	user, err := c.clients.Auth.FetchCurrentUser(ctx)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

func (c *CLI) handleMyListings(ctx context.Context, args []string) error {
	userID := ""
	if len(args) > 0 {
		userID = args[0]
	} else if _, ok := c.clients.Session.Token(); ok {
		id, err := c.currentUserID(ctx)
		if err != nil {
			return err
		}
		userID = id
	}

	res := c.clients.UserListings.FetchUserListings(ctx, userID)
	switch {
	case res.IsDisabled():
		return domain.ErrUnauthenticated
	case res.IsError():
		return res.Err
	}
	c.printListings(res.Data.Listings)
	return nil
}

func (c *CLI) handleDelete(ctx context.Context, args []string) error {
	fs := c.newFlagSet("delete")
	userID := fs.String("user", "", "owner id, defaults to the logged-in user")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: delete <listing id> [-user <user id>]")
	}
	if *userID == "" {
		id, err := c.currentUserID(ctx)
		if err != nil {
			return err
		}
		*userID = id
	}
	if err := c.clients.UserListings.DeleteListing(ctx, *userID, fs.Arg(0)); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Deleted listing %s\n", fs.Arg(0))
	return nil
}

func (c *CLI) handleLogout(ctx context.Context) error {
	if err := c.clients.Auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Logged out")
	return nil
}
