package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	appfs "github.com/dismod47/GroupChatProject/fs"
)

// seed upserts the courses of the YAML catalog at path, or of the bundled catalog when path is empty.
func (cli *commandLine) seed(path string) error {
	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = appfs.FS.ReadFile(appfs.CoursesSeedPath)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return errors.Wrap(err, "reading course catalog")
	}

	n, err := cli.courseSvc.Seed(context.Background(), data)
	if err != nil {
		return err
	}
	fmt.Printf("%d courses seeded\n", n)
	return nil
}
