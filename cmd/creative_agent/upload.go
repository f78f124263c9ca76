package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	uploadConfigPath  string
	uploadFile        string
	uploadContentType string
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload a logo or other asset to the object store",
	Long:  `Stores an asset and prints its handle, for use as --logo on 'creative_agent start'.`,
	RunE:  runUpload,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadConfigPath, "config", "", "Path to config.json file")
	uploadCmd.Flags().StringVarP(&uploadFile, "file", "f", "", "Path to the asset file (required)")
	uploadCmd.Flags().StringVar(&uploadContentType, "content-type", "", "Content type (defaults from the file extension)")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	if uploadFile == "" {
		return fmt.Errorf("--file is required")
	}
	data, err := os.ReadFile(uploadFile)
	if err != nil {
		return fmt.Errorf("failed to read asset: %w", err)
	}

	ext := strings.TrimPrefix(filepath.Ext(uploadFile), ".")
	contentType := uploadContentType
	if contentType == "" {
		if ext == "" {
			contentType = "application/octet-stream"
		} else {
			contentType = "image/" + ext
		}
	}
	if ext == "" {
		ext = "bin"
	}

	cfg, err := loadAgentConfig(uploadConfigPath)
	if err != nil {
		return err
	}
	deps, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	key := fmt.Sprintf("assets/%s.%s", uuid.New(), ext)
	handle, err := deps.blobs.Put(ctx, key, contentType, data)
	if err != nil {
		return err
	}

	fmt.Println(handle)
	return nil
}
