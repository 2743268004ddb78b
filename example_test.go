package beans_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"reflect"

	"github.com/junioryono/beans"
)

type Logger struct {
	prefix string
}

func (l *Logger) Log(msg string) string { return l.prefix + msg }

type Database struct {
	URL    string
	Logger *Logger
}

func (db *Database) Close() error {
	fmt.Println("closing", db.URL)
	return nil
}

type UserService struct {
	DB *Database
}

func (s *UserService) UserName(id int) string {
	return fmt.Sprintf("user-%d@%s", id, s.DB.URL)
}

// Example demonstrates registering definitions and resolving a bean graph.
func Example() {
	ctx := context.Background()

	c, err := beans.New(beans.WithDefinitions(
		beans.Define(func([]any) (*Logger, error) {
			return &Logger{prefix: "[app] "}, nil
		}),
		beans.Define(func(args []any) (*Database, error) {
			return &Database{URL: "db://main", Logger: args[0].(*Logger)}, nil
		}, beans.WithArguments(beans.Arg[*Logger]("logger"))),
		beans.Define(func(args []any) (*UserService, error) {
			return &UserService{DB: args[0].(*Database)}, nil
		}, beans.WithArguments(beans.Arg[*Database]("db"))),
	))
	if err != nil {
		log.Fatal(err)
	}

	if err := c.Start(ctx); err != nil {
		log.Fatal(err)
	}

	users, err := beans.Get[*UserService](ctx, c)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(users.UserName(1))

	// Stop closes the database because it implements Disposable.
	_ = c.Stop(ctx)

	// Output:
	// user-1@db://main
	// closing db://main
}

// ExamplePrimary shows how a primary definition wins over other candidates.
func ExamplePrimary() {
	ctx := context.Background()

	c, _ := beans.New(beans.WithDefinitions(
		beans.Define(func([]any) (*Logger, error) { return &Logger{prefix: "[plain] "}, nil }),
		beans.Define(func([]any) (*Logger, error) { return &Logger{prefix: "[primary] "}, nil }, beans.Primary()),
	))
	defer c.Stop(ctx)

	logger := beans.MustGet[*Logger](ctx, c)
	fmt.Println(logger.Log("hello"))
	// Output: [primary] hello
}

// ExampleNamed resolves one of several candidates by name.
func ExampleNamed() {
	ctx := context.Background()

	c, _ := beans.New(beans.WithDefinitions(
		beans.Define(func([]any) (*Logger, error) { return &Logger{prefix: "[audit] "}, nil }, beans.WithName("audit")),
		beans.Define(func([]any) (*Logger, error) { return &Logger{prefix: "[access] "}, nil }, beans.WithName("access")),
	))
	defer c.Stop(ctx)

	logger, _ := beans.Get[*Logger](ctx, c, beans.Named("access"))
	fmt.Println(logger.Log("GET /"))

	_, err := beans.Get[*Logger](ctx, c)
	var nonUnique *beans.NonUniqueBeanError
	fmt.Println(errors.As(err, &nonUnique))
	// Output:
	// [access] GET /
	// true
}

// ExampleAll collects every bean of a type in order.
func ExampleAll() {
	ctx := context.Background()

	c, _ := beans.New(beans.WithDefinitions(
		beans.Define(func([]any) (*Logger, error) { return &Logger{prefix: "second "}, nil }, beans.WithOrder(2)),
		beans.Define(func([]any) (*Logger, error) { return &Logger{prefix: "first "}, nil }, beans.WithOrder(1)),
	))
	defer c.Stop(ctx)

	loggers, _ := beans.All[*Logger](ctx, c)
	for _, l := range loggers {
		fmt.Println(l.Log("logger"))
	}
	// Output:
	// first logger
	// second logger
}

// ExampleArgument_AsNullable breaks a constructor cycle with a nullable argument.
func ExampleArgument_AsNullable() {
	type Parent struct{ Child any }
	type Child struct{ Parent *Parent }

	ctx := context.Background()

	c, _ := beans.New(beans.WithDefinitions(
		beans.Define(func(args []any) (*Parent, error) {
			return &Parent{Child: args[0]}, nil
		}, beans.WithArguments(beans.Arg[*Child]("child"))),
		beans.Define(func(args []any) (*Child, error) {
			parent, _ := args[0].(*Parent)
			return &Child{Parent: parent}, nil
		}, beans.WithArguments(beans.Arg[*Parent]("parent").AsNullable())),
	))
	defer c.Stop(ctx)

	p := beans.MustGet[*Parent](ctx, c)
	fmt.Println(p.Child.(*Child).Parent == nil)
	// Output: true
}

// ExampleContainer_GetBean resolves by reflect.Type.
func ExampleContainer_GetBean() {
	ctx := context.Background()

	c, _ := beans.New(beans.WithDefinitions(
		beans.Define(func([]any) (*Logger, error) { return &Logger{prefix: "> "}, nil }),
	))
	defer c.Stop(ctx)

	v, err := c.GetBean(ctx, reflect.TypeFor[*Logger](), nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(v.(*Logger).Log("by type"))
	// Output: > by type
}
