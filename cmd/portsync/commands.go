package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/safing/portsync/adapter"
	"github.com/safing/portsync/api"
	"github.com/safing/portsync/config"
	"github.com/safing/portsync/database/attr"
	"github.com/safing/portsync/database/document"
	"github.com/safing/portsync/model"
	"github.com/safing/portsync/run"
)

func checkArgs(args []string, names ...string) error {
	if len(args) != len(names) {
		return fmt.Errorf("%w: expected arguments %v", errUsage, names)
	}
	return nil
}

func ensureClass(a *adapter.Adapter, recordType string) (*model.Class, error) {
	return a.Registry().Ensure(recordType)
}

func printRecord(out io.Writer, r model.Record) error {
	doc := api.RecordDocument(r)
	if dump {
		_, err := fmt.Fprint(out, spew.Sdump(doc.Interface()))
		return err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n", data)
	return err
}

func list(a *adapter.Adapter, args []string, out io.Writer) error {
	if err := checkArgs(args, "type"); err != nil {
		return err
	}
	class, err := ensureClass(a, args[0])
	if err != nil {
		return err
	}

	records, err := a.Fetch(class.Name, nil).Wait()
	if err != nil {
		return err
	}
	for _, r := range records {
		if err := printRecord(out, r); err != nil {
			return err
		}
	}
	return nil
}

func get(a *adapter.Adapter, args []string, out io.Writer) error {
	if err := checkArgs(args, "type", "id"); err != nil {
		return err
	}
	class, err := ensureClass(a, args[0])
	if err != nil {
		return err
	}

	r, err := a.Find(class.Name, args[1], nil).Wait()
	if err != nil {
		return err
	}
	return printRecord(out, r)
}

func create(a *adapter.Adapter, args []string, out io.Writer) error {
	if err := checkArgs(args, "type", "json"); err != nil {
		return err
	}
	class, err := ensureClass(a, args[0])
	if err != nil {
		return err
	}
	body, err := attr.ParseJSON([]byte(args[1]))
	if err != nil {
		return err
	}

	attributes, meta := document.Split(body)
	r := class.New()
	r.Load(document.Merge(attributes, &document.Meta{ID: meta.ID}))

	created, err := a.Create(r, nil).Wait()
	if err != nil {
		return err
	}
	return printRecord(out, created)
}

// set patches the attributes of a record with sjson. Values that are not
// valid JSON are set as strings.
func set(a *adapter.Adapter, args []string, out io.Writer) error {
	if err := checkArgs(args, "type", "id", "path", "value"); err != nil {
		return err
	}
	class, err := ensureClass(a, args[0])
	if err != nil {
		return err
	}
	path, value := args[2], args[3]
	if document.IsReserved(strings.SplitN(path, ".", 2)[0]) {
		return fmt.Errorf("%w: %s", model.ErrReservedAttribute, path)
	}

	r, err := a.Find(class.Name, args[1], nil).Wait()
	if err != nil {
		return err
	}

	attributes, _ := document.Split(r.AsPlainObject())
	data, err := json.Marshal(attributes)
	if err != nil {
		return err
	}
	if gjson.Valid(value) {
		data, err = sjson.SetRawBytes(data, path, []byte(value))
	} else {
		data, err = sjson.SetBytes(data, path, value)
	}
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}

	patched, err := attr.ParseJSON(data)
	if err != nil {
		return err
	}
	var setErr error
	patched.Range(func(name string, v attr.Value) bool {
		if current, ok := r.Get(name); !ok || !current.Equal(v) {
			setErr = r.Set(name, v)
		}
		return setErr == nil
	})
	if setErr != nil {
		return setErr
	}

	updated, err := a.Update(r, nil).Wait()
	if err != nil {
		return err
	}
	return printRecord(out, updated)
}

func remove(a *adapter.Adapter, args []string, out io.Writer) error {
	if err := checkArgs(args, "type", "id"); err != nil {
		return err
	}
	class, err := ensureClass(a, args[0])
	if err != nil {
		return err
	}

	r, err := a.Find(class.Name, args[1], nil).Wait()
	if err != nil {
		return err
	}
	if _, err := a.Delete(r, nil).Wait(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "deleted %s\n", args[1])
	return err
}

func maintain(out io.Writer) error {
	db, err := adapter.Database()
	if err != nil {
		return err
	}

	// Deletion times have a resolution of one second.
	cutoff := time.Now().Add(time.Second)
	if purgeAge > 0 {
		cutoff = time.Now().Add(-purgeAge)
	}

	purged, err := db.Maintain(context.Background(), cutoff)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "purged %d deleted documents\n", purged)
	return err
}

func printOptions(out io.Writer) error {
	for _, key := range config.Keys() {
		option, err := config.GetOption(key)
		if err != nil {
			return err
		}
		data, err := option.Export()
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(out, "%s\n", data); err != nil {
			return err
		}
	}
	return nil
}

func serve(a *adapter.Adapter) int {
	address := listen
	if address == "" {
		address = api.ListenAddress()
	}
	server := api.NewServer(a)

	return run.Run(func() error {
		if _, err := adapter.Database(); err != nil {
			return err
		}
		_, err := server.Start(address)
		return err
	}, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Stop(ctx); err != nil && !errors.Is(err, api.ErrNotStarted) {
			return err
		}
		return nil
	}, nil)
}
