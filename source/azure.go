package source

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
)

// AzureConfig holds configuration for the Azure Blob Storage source backend.
type AzureConfig struct {
	AccountName string // Azure storage account name (required)
	AccountKey  string // Azure storage account key (required)
	Container   string // Blob container name (required)
	Prefix      string // Blob prefix acting as the "directory" (optional)
	ServiceURL  string // Custom service URL, e.g. Azurite (optional)
}

// AzureSource implements Source for the blobs directly under a container prefix.
type AzureSource struct {
	client    *azblob.Client
	account   string
	container string
	prefix    string
}

// NewAzure creates an Azure Blob source with the specified configuration.
func NewAzure(config AzureConfig) (*AzureSource, error) {
	if config.AccountName == "" || config.AccountKey == "" || config.Container == "" {
		return nil, fmt.Errorf("%w: account name, account key, and container are required", ErrInvalidConfig)
	}

	cred, err := azblob.NewSharedKeyCredential(config.AccountName, config.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credentials: %w", err)
	}

	serviceURL := config.ServiceURL
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net/", config.AccountName)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}

	return &AzureSource{
		client:    client,
		account:   config.AccountName,
		container: config.Container,
		prefix:    strings.Trim(config.Prefix, "/"),
	}, nil
}

// Name returns the azblob:// URI of the source.
func (a *AzureSource) Name() string {
	return "azblob://" + a.account + "/" + a.container + "/" + a.prefix
}

// List returns the blob names directly under the prefix. Virtual
// directories are reported as BlobPrefixes by the hierarchy listing and are
// left out.
func (a *AzureSource) List(ctx context.Context) ([]string, error) {
	opts := &container.ListBlobsHierarchyOptions{}
	if p := listPrefix(a.prefix); p != "" {
		opts.Prefix = &p
	}

	var names []string
	pager := a.client.ServiceClient().NewContainerClient(a.container).NewListBlobsHierarchyPager("/", opts)
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", a.Name(), err)
		}
		if resp.Segment == nil {
			continue
		}
		for _, blob := range resp.Segment.BlobItems {
			if blob.Name == nil {
				continue
			}
			if name, ok := childName(a.prefix, *blob.Name); ok {
				names = append(names, name)
			}
		}
	}

	sort.Strings(names)
	return names, nil
}

// Open streams a blob directly under the prefix.
func (a *AzureSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	resp, err := a.client.DownloadStream(ctx, a.container, joinKey(a.prefix, name), nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, a.Name(), name)
		}
		return nil, fmt.Errorf("failed to download blob: %w", err)
	}
	return resp.Body, nil
}

// Close is a no-op; the Azure client holds no resources that need releasing.
func (a *AzureSource) Close() error {
	return nil
}
